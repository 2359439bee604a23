// Package resolve synthesizes query resolvers from the attribute catalog.
// For every identity attribute of a partition it generates a fetch resolver
// (batched lookup with projection) and an all-identifiers resolver, and
// flattens enum projections back into bare symbolic values.
package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
	"github.com/teranos/facet/logger"
	"github.com/teranos/facet/store"
)

// Limits bounds resolver batch sizes. Exceeding MaxBatchSize fails before any
// query runs; exceeding WarnBatchSize only logs a warning.
type Limits struct {
	MaxBatchSize  int
	WarnBatchSize int
}

// DefaultLimits returns the stock batch limits.
func DefaultLimits() Limits {
	return Limits{MaxBatchSize: 1000, WarnBatchSize: 100}
}

// Resolver answers queries for one entity type, addressed by its identity
// attribute. Middleware wraps this interface.
type Resolver interface {
	// IdentityAttr names the identity attribute this resolver serves.
	IdentityAttr() string

	// Fetch looks up a batch of identifier values and returns one projected
	// record per input, in input order. Absent identifiers yield an empty map.
	Fetch(ctx context.Context, snap *store.Snapshot, idents []any, projection []any) ([]map[string]any, error)

	// AllIdents returns every existing identifier of the entity type.
	AllIdents(ctx context.Context, snap *store.Snapshot) ([]any, error)
}

// Generator builds resolvers from the catalog.
type Generator struct {
	cat    *catalog.Catalog
	limits Limits
	logger *zap.SugaredLogger
	hooks  map[string][]Middleware
}

// NewGenerator returns a generator over the catalog with the given batch
// limits. A nil logger falls back to the global one.
func NewGenerator(cat *catalog.Catalog, limits Limits, log *zap.SugaredLogger) *Generator {
	return &Generator{
		cat:    cat,
		limits: limits,
		logger: logger.Or(log),
		hooks:  make(map[string][]Middleware),
	}
}

// Use registers middleware wrapping the resolver of one identity attribute.
// Hooks apply in registration order when Generate runs.
func (g *Generator) Use(identityAttr string, mws ...Middleware) {
	g.hooks[identityAttr] = append(g.hooks[identityAttr], mws...)
}

// Generate yields one resolver per identity attribute of the partition, in
// catalog order, with any registered middleware applied.
func (g *Generator) Generate(partition string) ([]Resolver, error) {
	var out []Resolver
	for _, attr := range g.cat.IdentityAttrs(partition) {
		er := &entityResolver{
			identity: attr,
			cat:      g.cat,
			limits:   g.limits,
			logger:   g.logger,
		}
		if attr.NativeID {
			er.discriminator = g.discriminator(attr.Key)
		}
		out = append(out, Chain(er, g.hooks[attr.Key]...))
	}
	if len(out) == 0 {
		return nil, errors.Newf("partition %q has no identity attributes", partition)
	}
	return out, nil
}

// discriminator picks the first non-identity attribute belonging to the
// entity type. Native-id types share the backend's global identity space, so
// their all-identifiers query must be restricted by an attribute known to be
// theirs alone.
func (g *Generator) discriminator(identityAttr string) string {
	if attrs := g.cat.OfIdentity(identityAttr); len(attrs) > 0 {
		return attrs[0].Key
	}
	return ""
}

type entityResolver struct {
	identity      catalog.Attribute
	cat           *catalog.Catalog
	limits        Limits
	logger        *zap.SugaredLogger
	discriminator string
}

var _ Resolver = (*entityResolver)(nil)

func (r *entityResolver) IdentityAttr() string {
	return r.identity.Key
}

func (r *entityResolver) Fetch(ctx context.Context, snap *store.Snapshot, idents []any, projection []any) ([]map[string]any, error) {
	if len(idents) > r.limits.MaxBatchSize {
		return nil, errors.Wrapf(errors.ErrBatchTooLarge,
			"%s: %d identifiers exceed the maximum batch size %d",
			r.identity.Key, len(idents), r.limits.MaxBatchSize)
	}
	if len(idents) > r.limits.WarnBatchSize {
		r.logger.Warnw("Large resolver batch",
			logger.FieldAttribute, r.identity.Key,
			logger.FieldBatchSize, len(idents),
			"warn_threshold", r.limits.WarnBatchSize,
		)
	}

	out := make([]map[string]any, 0, len(idents))
	for _, ident := range idents {
		e, found, err := snap.EntityID(r.identity.Key, ident)
		if err != nil {
			return nil, err
		}
		if !found {
			out = append(out, map[string]any{})
			continue
		}
		record, err := snap.Pull(e, projection)
		if err != nil {
			return nil, err
		}
		out = append(out, flattenEnums(r.cat, record))
	}
	return out, nil
}

func (r *entityResolver) AllIdents(ctx context.Context, snap *store.Snapshot) ([]any, error) {
	if !r.identity.NativeID {
		return snap.AttrValues(r.identity.Key)
	}

	// Known limitation: a native-id entity with only its identity populated
	// carries no discriminating fact and is invisible here.
	if r.discriminator == "" {
		return nil, errors.Newf(
			"%s: native-id type has no non-identity attribute to discriminate by",
			r.identity.Key)
	}
	es, err := snap.EntitiesWith(r.discriminator)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out, nil
}
