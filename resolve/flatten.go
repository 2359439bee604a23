package resolve

import (
	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/store"
)

// flattenEnums rewrites enum projections in place: the backend pulls an
// enum-typed attribute as a nested symbolic-reference record, and callers
// want the bare symbolic value (cardinality one) or a list of bare values
// (many). Ref-typed attributes recurse so arbitrarily nested projections
// flatten too.
func flattenEnums(cat *catalog.Catalog, record map[string]any) map[string]any {
	for key, v := range record {
		attr, ok := cat.Get(key)
		if !ok {
			continue
		}
		switch attr.Type {
		case catalog.KindEnum:
			record[key] = flattenValue(v)
		case catalog.KindRef:
			record[key] = flattenRef(cat, v)
		}
	}
	return record
}

func flattenValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if ident, ok := val[store.DBIdent]; ok {
			return ident
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = flattenValue(item)
		}
		return out
	default:
		return v
	}
}

func flattenRef(cat *catalog.Catalog, v any) any {
	switch val := v.(type) {
	case map[string]any:
		return flattenEnums(cat, val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = flattenRef(cat, item)
		}
		return out
	default:
		return v
	}
}
