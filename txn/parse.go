package txn

import (
	"encoding/json"
	"sort"

	"github.com/teranos/facet/errors"
)

// ParseDeltaJSON validates and decodes the wire form of a delta.
//
// The wire form is a list of entity entries, each pairing a 2-element
// identity tuple with a mapping of attribute key to before/after change:
//
//	[
//	  {"ident": ["user/id", "8d1f..."],
//	   "changes": {"user/email": {"before": null, "after": "a@x.com"}}},
//	  {"ident": ["user/id", {"placeholder": "new-1"}],
//	   "changes": {"user/id": {"after": "77aa..."}}}
//	]
//
// An identifier value may be a scalar (raw), {"value": v} (wrapped) or
// {"placeholder": "token"}. Any shape violation fails with ErrInvalidDelta
// carrying the offending fragment, before anything touches the backend.
func ParseDeltaJSON(data []byte) (*Delta, error) {
	var entries []rawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewInvalidDelta("delta is not a list of entity entries: %v", err)
	}

	d := NewDelta()
	for i, e := range entries {
		if len(e.Ident) != 2 {
			return nil, errors.NewInvalidDelta("entry %d: ident must be a 2-element [attribute, value] tuple, got %s", i, compactJSON(e.Ident))
		}

		var attrKey string
		if err := json.Unmarshal(e.Ident[0], &attrKey); err != nil || attrKey == "" {
			return nil, errors.NewInvalidDelta("entry %d: identity attribute must be a non-empty string, got %s", i, compactJSON(e.Ident[:1]))
		}

		identValue, err := parseIdentValue(e.Ident[1])
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}

		if len(e.Changes) == 0 {
			return nil, errors.NewInvalidDelta("entry %d (%s): changes must be a non-empty mapping", i, attrKey)
		}

		ref := EntityRef{Attr: attrKey, Ident: identValue}

		// JSON objects carry no order; sort so repeated parses compile to
		// identically ordered operations.
		attrs := make([]string, 0, len(e.Changes))
		for attr := range e.Changes {
			if attr == "" {
				return nil, errors.NewInvalidDelta("entry %d (%s): change with empty attribute key", i, attrKey)
			}
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)
		for _, attr := range attrs {
			change := e.Changes[attr]
			d.Set(ref, attr, change.Before, change.After)
		}
	}
	return d, nil
}

type rawEntry struct {
	Ident   []json.RawMessage `json:"ident"`
	Changes map[string]Change `json:"changes"`
}

// parseIdentValue decodes the identifier-value shapes of the wire form.
func parseIdentValue(raw json.RawMessage) (any, error) {
	// Object forms: {"placeholder": token} or {"value": v}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if tok, ok := obj["placeholder"]; ok {
			var token string
			if err := json.Unmarshal(tok, &token); err != nil || token == "" {
				return nil, errors.NewInvalidDelta("placeholder token must be a non-empty string, got %s", string(tok))
			}
			return PlaceholderToken(token), nil
		}
		if val, ok := obj["value"]; ok {
			var v any
			if err := json.Unmarshal(val, &v); err != nil {
				return nil, errors.NewInvalidDelta("wrapped identifier value %s is not valid JSON", string(val))
			}
			return Box{Value: v}, nil
		}
		return nil, errors.NewInvalidDelta("identifier object must carry \"placeholder\" or \"value\", got %s", string(raw))
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.NewInvalidDelta("identifier value %s is not valid JSON", string(raw))
	}
	if v == nil {
		return nil, errors.NewInvalidDelta("identifier value is null")
	}
	return v, nil
}

func compactJSON(raw []json.RawMessage) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return "<unencodable>"
	}
	return string(b)
}
