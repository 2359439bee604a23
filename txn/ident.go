// Package txn compiles per-request edit deltas into ordered transaction
// operations against the fact store, and owns the identifier reconciler that
// hands out synthesized ids for not-yet-persisted entities.
package txn

import (
	"fmt"
)

// IdentKind tags the three shapes an identifier value arrives in.
type IdentKind int

const (
	// IdentRaw is a final value, already or about to be persisted.
	IdentRaw IdentKind = iota
	// IdentWrapped is a final value inside a single-field container,
	// unwrapped one level during normalization.
	IdentWrapped
	// IdentPlaceholder is a token standing in for an entity that has not
	// been persisted yet.
	IdentPlaceholder
)

// Box is a single-field container around an identifier value. The editing
// layer wraps about-to-be-persisted values this way; normalization unwraps
// exactly one level.
type Box struct {
	Value any
}

// PlaceholderToken marks an identifier value as a placeholder for a
// not-yet-persisted entity. The token itself never reaches the backend.
type PlaceholderToken string

// Ident is the normalized identifier value: exactly one of the three shapes.
type Ident struct {
	kind  IdentKind
	value any
	token string
}

// Raw builds an Ident around a final identifier value.
func Raw(v any) Ident {
	return Ident{kind: IdentRaw, value: v}
}

// Wrapped builds an Ident around a boxed value, unwrapping it.
func Wrapped(b Box) Ident {
	return Ident{kind: IdentWrapped, value: b.Value}
}

// Placeholder builds an Ident around a placeholder token.
func Placeholder(token string) Ident {
	return Ident{kind: IdentPlaceholder, token: token}
}

// NormalizeIdent resolves the polymorphic identifier shapes once, at compiler
// entry. Anything that is not a Box, a PlaceholderToken or already an Ident
// is treated as a raw final value.
func NormalizeIdent(v any) Ident {
	switch x := v.(type) {
	case Ident:
		return x
	case Box:
		return Wrapped(x)
	case *Box:
		if x == nil {
			return Raw(nil)
		}
		return Wrapped(*x)
	case PlaceholderToken:
		return Placeholder(string(x))
	default:
		return Raw(v)
	}
}

// Kind returns the normalized shape tag.
func (id Ident) Kind() IdentKind {
	return id.kind
}

// IsPlaceholder reports whether the ident is a placeholder token.
func (id Ident) IsPlaceholder() bool {
	return id.kind == IdentPlaceholder
}

// Value returns the final identifier value for raw and wrapped idents.
// For placeholders it returns nil; the token is not a backend value.
func (id Ident) Value() any {
	if id.kind == IdentPlaceholder {
		return nil
	}
	return id.value
}

// Token returns the placeholder token, or "" for raw and wrapped idents.
func (id Ident) Token() string {
	return id.token
}

func (id Ident) String() string {
	if id.kind == IdentPlaceholder {
		return fmt.Sprintf("placeholder(%s)", id.token)
	}
	return fmt.Sprintf("%v", id.value)
}

// key is the map key used for delta entity indexing.
func (id Ident) key() string {
	if id.kind == IdentPlaceholder {
		return "p|" + id.token
	}
	return fmt.Sprintf("v|%v", id.value)
}
