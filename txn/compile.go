package txn

import (
	"reflect"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
)

// Compiled is the output of one compile call: ordered transaction operations
// plus the placeholder mappings for this delta.
type Compiled struct {
	// Ops holds the operations in delta-insertion order: per entity one
	// upsert (when any attribute accumulated) followed by its retractions.
	Ops []Op

	// Resolved maps placeholder tokens to the identity attribute's after
	// value from the delta — never the token itself, which is not a valid
	// backend value. Always non-nil.
	Resolved map[string]any

	// TempIDs maps placeholder tokens to the synthesized negative ids used
	// in Ops. Always non-nil.
	TempIDs map[string]int64

	// IdentityAttrs maps placeholder tokens to the identity attribute that
	// addressed the entity. The save orchestrator uses it to read final
	// identifier values back after commit. Always non-nil.
	IdentityAttrs map[string]string
}

// Compile translates a delta into ordered transaction operations.
//
// Shape violations fail immediately with ErrInvalidDelta, before any backend
// work. Placeholders receive distinct synthesized ids from the IDSource, one
// per token, scoped to this call. Attributes whose before equals after are
// true no-ops and compile to nothing; a nil after with a non-nil before
// compiles to a retraction.
func Compile(d *Delta, cat *catalog.Catalog, ids IDSource) (*Compiled, error) {
	out := &Compiled{
		Resolved:      make(map[string]any),
		TempIDs:       make(map[string]int64),
		IdentityAttrs: make(map[string]string),
	}
	if d == nil || len(d.entities) == 0 {
		return out, nil
	}
	if cat == nil {
		return nil, errors.AssertionFailedf("compile called without a catalog")
	}
	if ids == nil {
		return nil, errors.AssertionFailedf("compile called without an id source")
	}

	// Scoped placeholder->tempid map, fresh per compile call.
	scoped := make(map[string]int64)

	for _, ec := range d.entities {
		idAttr, err := identityAttr(cat, ec.ref)
		if err != nil {
			return nil, err
		}
		partition := idAttr.Partition

		opID, err := resolveOpID(ec, idAttr, ids, scoped, out)
		if err != nil {
			return nil, err
		}

		var upsert []AttrValue
		var retracts []Retract

		for _, attrKey := range ec.keys {
			change := ec.changes[attrKey]

			attr, ok := cat.Get(attrKey)
			if !ok {
				return nil, errors.NewInvalidDelta("unknown attribute %q for entity %s", attrKey, ec.ident)
			}

			if reflect.DeepEqual(change.Before, change.After) {
				// True no-op, nothing to transact.
				continue
			}

			if change.After == nil {
				if attr.Identity {
					return nil, errors.NewInvalidDelta("identity attribute %q resolves to nil for entity %s", attrKey, ec.ident)
				}
				if change.Before != nil {
					retracts = append(retracts, Retract{ID: opID, Partition: partition, Attr: attrKey})
				}
				continue
			}

			upsert = append(upsert, AttrValue{Attr: attrKey, Value: change.After})
		}

		if len(upsert) > 0 {
			out.Ops = append(out.Ops, Upsert{ID: opID, Partition: partition, Attrs: upsert})
		}
		for _, r := range retracts {
			out.Ops = append(out.Ops, r)
		}
	}

	return out, nil
}

// identityAttr validates the entity ref's identity attribute against the
// catalog.
func identityAttr(cat *catalog.Catalog, ref EntityRef) (catalog.Attribute, error) {
	if ref.Attr == "" {
		return catalog.Attribute{}, errors.NewInvalidDelta("entity ref with empty identity attribute (ident %v)", ref.Ident)
	}
	attr, ok := cat.Get(ref.Attr)
	if !ok {
		return catalog.Attribute{}, errors.NewInvalidDelta("unknown identity attribute %q", ref.Attr)
	}
	if !attr.Identity && !attr.NativeID {
		return catalog.Attribute{}, errors.NewInvalidDelta("attribute %q is not an identity attribute", ref.Attr)
	}
	return attr, nil
}

// resolveOpID turns the normalized ident into the operation id for this
// entity, registering placeholder mappings as a side effect.
func resolveOpID(ec *entityChanges, idAttr catalog.Attribute, ids IDSource, scoped map[string]int64, out *Compiled) (OpID, error) {
	ident := ec.ident

	if !ident.IsPlaceholder() {
		if ident.Value() == nil {
			return nil, errors.NewInvalidDelta("nil identifier value for identity attribute %q", ec.ref.Attr)
		}
		return LookupRef{Attr: ec.ref.Attr, Value: ident.Value()}, nil
	}

	token := ident.Token()
	tid, seen := scoped[token]
	if !seen {
		// Distinct ids come from the counter, one per token per compile.
		// Never derived from hashing the token: a hash collision would
		// silently merge two unrelated new entities.
		tid = ids.NextID()
		scoped[token] = tid
		out.TempIDs[token] = tid
		out.IdentityAttrs[token] = ec.ref.Attr
	}

	// The final mapping carries the identity attribute's after value, never
	// the placeholder token: tokens are not valid backend values. Native-id
	// entities are exempt; the backend assigns their identifier at commit.
	if !idAttr.NativeID {
		change, ok := ec.changes[idAttr.Key]
		if !ok {
			return nil, errors.NewInvalidDelta("placeholder %q carries no value for identity attribute %q", token, idAttr.Key)
		}
		if change.After == nil {
			return nil, errors.NewInvalidDelta("identity attribute %q resolves to nil for placeholder %q", idAttr.Key, token)
		}
		out.Resolved[token] = change.After
	}

	return TempID(tid), nil
}

// ByPartition splits the compiled operations per schema partition,
// preserving operation order within each partition.
func (c *Compiled) ByPartition() map[string][]Op {
	split := make(map[string][]Op)
	for _, op := range c.Ops {
		p := op.OpPartition()
		split[p] = append(split[p], op)
	}
	return split
}

// Partitions returns the partitions touched by the compiled operations,
// in first-seen order.
func (c *Compiled) Partitions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, op := range c.Ops {
		p := op.OpPartition()
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
