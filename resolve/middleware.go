package resolve

import (
	"context"

	"github.com/teranos/facet/store"
)

// Middleware wraps a resolver, returning a resolver. Hooks registered on the
// generator run through Chain when resolvers are generated.
type Middleware func(Resolver) Resolver

// Chain applies middleware so the first listed wraps outermost.
func Chain(r Resolver, mws ...Middleware) Resolver {
	for i := len(mws) - 1; i >= 0; i-- {
		r = mws[i](r)
	}
	return r
}

// FetchFunc adapts a function into the fetch half of a wrapped resolver.
type FetchFunc func(ctx context.Context, snap *store.Snapshot, idents []any, projection []any) ([]map[string]any, error)

// WrapFetch builds middleware that intercepts Fetch, delegating everything
// else to the wrapped resolver. The interceptor receives the next resolver's
// Fetch as a FetchFunc.
func WrapFetch(intercept func(next FetchFunc) FetchFunc) Middleware {
	return func(next Resolver) Resolver {
		return &fetchWrapper{Resolver: next, fetch: intercept(next.Fetch)}
	}
}

type fetchWrapper struct {
	Resolver
	fetch FetchFunc
}

func (w *fetchWrapper) Fetch(ctx context.Context, snap *store.Snapshot, idents []any, projection []any) ([]map[string]any, error) {
	return w.fetch(ctx, snap, idents, projection)
}
