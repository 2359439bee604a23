// Package persist orchestrates saves and deletes: it compiles a delta,
// routes the compiled operations to per-partition store connections, and
// shapes the caller-facing result with the placeholder mapping.
package persist

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
	"github.com/teranos/facet/logger"
	"github.com/teranos/facet/store"
	"github.com/teranos/facet/txn"
)

// TempIDsKey is the result key carrying the placeholder mapping. It is
// present on every save result, holding an empty map when the delta carried
// no placeholders.
const TempIDsKey = "tempids"

// Saver routes compiled deltas to partition connections.
type Saver struct {
	cat    *catalog.Catalog
	routes map[string]store.Connection
	ids    txn.IDSource
	logger *zap.SugaredLogger
}

// NewSaver builds a saver over the routing map. A nil logger falls back to
// the global one.
func NewSaver(cat *catalog.Catalog, routes map[string]store.Connection, ids txn.IDSource, log *zap.SugaredLogger) *Saver {
	return &Saver{
		cat:    cat,
		routes: routes,
		ids:    ids,
		logger: logger.Or(log),
	}
}

// Save compiles the delta, transacts each touched partition atomically, and
// returns base merged with the placeholder mapping under TempIDsKey. The
// mapping key is always present, even for nil or empty deltas. A placeholder
// maps to its identity attribute's persisted value, never to the token.
func (s *Saver) Save(ctx context.Context, delta *txn.Delta, base map[string]any) (map[string]any, error) {
	compiled, err := txn.Compile(delta, s.cat, s.ids)
	if err != nil {
		return nil, err
	}

	partitions := compiled.Partitions()
	for _, p := range partitions {
		if _, ok := s.routes[p]; !ok {
			return nil, errors.Wrapf(errors.ErrMissingConnection,
				"partition %q (available: %s)", p, s.available())
		}
	}

	mapping := make(map[string]any, len(compiled.TempIDs))
	for token, after := range compiled.Resolved {
		mapping[token] = after
	}

	byPartition := compiled.ByPartition()
	reports := make(map[string]*store.TxReport, len(partitions))
	for _, p := range partitions {
		ops := byPartition[p]
		report, err := s.routes[p].Transact(ctx, ops)
		if err != nil {
			// Never swallowed: a swallowed failure means data silently did
			// not persist while the caller believes it did.
			return nil, errors.Wrapf(err, "transact partition %q (%d operations)", p, len(ops))
		}
		reports[p] = report
	}

	if err := s.readBack(ctx, compiled, reports, mapping); err != nil {
		return nil, err
	}

	s.logger.Debugw("Delta saved",
		"partitions", partitions,
		logger.FieldOpCount, len(compiled.Ops),
		logger.FieldTempIDCount, len(compiled.TempIDs),
	)

	result := make(map[string]any, len(base)+1)
	for k, v := range base {
		result[k] = v
	}
	result[TempIDsKey] = mapping
	return result, nil
}

// readBack resolves placeholder tokens to their persisted identifier values,
// one batched identity query per (partition, identity attribute) group.
// Native-id entities map straight to the entity id the backend assigned.
func (s *Saver) readBack(ctx context.Context, compiled *txn.Compiled, reports map[string]*store.TxReport, mapping map[string]any) error {
	type group struct {
		entities []int64
		tokens   map[int64]string
	}
	groups := make(map[string]map[string]*group)

	for token, tid := range compiled.TempIDs {
		attrKey := compiled.IdentityAttrs[token]
		attr, ok := s.cat.Get(attrKey)
		if !ok {
			return errors.AssertionFailedf("compiled placeholder %q bound to unknown attribute %q", token, attrKey)
		}

		report := reports[attr.Partition]
		if report == nil {
			continue
		}
		e, assigned := report.TempIDs[tid]
		if !assigned {
			continue
		}

		if attr.NativeID {
			mapping[token] = e
			continue
		}

		byAttr := groups[attr.Partition]
		if byAttr == nil {
			byAttr = make(map[string]*group)
			groups[attr.Partition] = byAttr
		}
		g := byAttr[attrKey]
		if g == nil {
			g = &group{tokens: make(map[int64]string)}
			byAttr[attrKey] = g
		}
		g.entities = append(g.entities, e)
		g.tokens[e] = token
	}

	for partition, byAttr := range groups {
		snap, err := s.routes[partition].ReadSnapshot(ctx)
		if err != nil {
			return errors.Wrapf(err, "read back partition %q", partition)
		}
		for attrKey, g := range byAttr {
			values, err := snap.IdentityValues(attrKey, g.entities)
			if err != nil {
				snap.Close()
				return errors.Wrapf(err, "read back %s in partition %q", attrKey, partition)
			}
			for e, v := range values {
				mapping[g.tokens[e]] = v
			}
		}
		snap.Close()
	}
	return nil
}

// Delete retracts the whole entity addressed by the ref. Deleting a
// non-existent entity is a silent no-op. The result is a copy of base.
func (s *Saver) Delete(ctx context.Context, ref txn.EntityRef, base map[string]any) (map[string]any, error) {
	attr, ok := s.cat.Get(ref.Attr)
	if !ok {
		return nil, errors.NewInvalidDelta("unknown identity attribute %q", ref.Attr)
	}
	if !attr.Identity && !attr.NativeID {
		return nil, errors.NewInvalidDelta("attribute %q is not an identity attribute", ref.Attr)
	}

	ident := txn.NormalizeIdent(ref.Ident)
	if ident.IsPlaceholder() {
		return nil, errors.NewInvalidDelta("cannot delete by placeholder %q", ident.Token())
	}
	if ident.Value() == nil {
		return nil, errors.NewInvalidDelta("nil identifier value for identity attribute %q", ref.Attr)
	}

	conn, ok := s.routes[attr.Partition]
	if !ok {
		return nil, errors.Wrapf(errors.ErrMissingConnection,
			"partition %q (available: %s)", attr.Partition, s.available())
	}

	if err := conn.RetractEntity(ctx, txn.LookupRef{Attr: ref.Attr, Value: ident.Value()}); err != nil {
		return nil, errors.Wrapf(err, "delete %s %v", ref.Attr, ident.Value())
	}

	s.logger.Debugw("Entity deleted", logger.FieldAttribute, ref.Attr, logger.FieldPartition, attr.Partition)

	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}
	return result, nil
}

// available lists the routed partitions, sorted for stable error text.
func (s *Saver) available() string {
	names := make([]string, 0, len(s.routes))
	for p := range s.routes {
		names = append(names, p)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
