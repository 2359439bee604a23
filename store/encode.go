package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
)

// encodeValue serializes an attribute value for the facts table. Values are
// stored JSON-encoded; refs and enums store the target entity id as a JSON
// number, resolved before encoding.
func encodeValue(attr catalog.Attribute, v any) (string, error) {
	switch attr.Type {
	case catalog.KindUUID:
		s, ok := v.(string)
		if !ok {
			if u, isUUID := v.(uuid.UUID); isUUID {
				s = u.String()
			} else {
				return "", errors.Newf("attribute %q: uuid value must be a string, got %T", attr.Key, v)
			}
		}
		parsed, err := uuid.Parse(s)
		if err != nil {
			return "", errors.Wrapf(err, "attribute %q: invalid uuid %q", attr.Key, s)
		}
		return marshal(parsed.String())

	case catalog.KindInstant:
		switch ts := v.(type) {
		case time.Time:
			return marshal(ts.UTC().Format(time.RFC3339Nano))
		case string:
			if _, err := time.Parse(time.RFC3339, ts); err != nil {
				return "", errors.Wrapf(err, "attribute %q: invalid instant %q", attr.Key, ts)
			}
			return marshal(ts)
		default:
			return "", errors.Newf("attribute %q: instant value must be time.Time or RFC 3339 string, got %T", attr.Key, v)
		}

	case catalog.KindLong:
		switch n := v.(type) {
		case int:
			return marshal(int64(n))
		case int64:
			return marshal(n)
		case float64:
			// JSON decoding hands over float64; reject fractional values.
			if n != float64(int64(n)) {
				return "", errors.Newf("attribute %q: long value %v has a fractional part", attr.Key, n)
			}
			return marshal(int64(n))
		default:
			return "", errors.Newf("attribute %q: long value must be an integer, got %T", attr.Key, v)
		}

	case catalog.KindDouble:
		switch n := v.(type) {
		case float64:
			return marshal(n)
		case int:
			return marshal(float64(n))
		case int64:
			return marshal(float64(n))
		default:
			return "", errors.Newf("attribute %q: double value must be numeric, got %T", attr.Key, v)
		}

	case catalog.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return "", errors.Newf("attribute %q: boolean value must be bool, got %T", attr.Key, v)
		}
		return marshal(b)

	case catalog.KindString:
		s, ok := v.(string)
		if !ok {
			return "", errors.Newf("attribute %q: string value must be string, got %T", attr.Key, v)
		}
		return marshal(s)

	default:
		// Refs and enums are resolved to entity ids before encoding.
		return "", errors.AssertionFailedf("encodeValue called for %s attribute %q", attr.Type, attr.Key)
	}
}

// encodeRef serializes a resolved entity id for a ref or enum attribute.
func encodeRef(e int64) string {
	s, _ := marshal(e)
	return s
}

// decodeValue deserializes a facts-table value according to the attribute
// kind. Refs and enums decode to the raw entity id; pulling shapes them into
// nested records.
func decodeValue(attr catalog.Attribute, raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, errors.Wrapf(err, "attribute %q: corrupt stored value %q", attr.Key, raw)
	}

	switch attr.Type {
	case catalog.KindLong, catalog.KindRef, catalog.KindEnum:
		if n, ok := v.(float64); ok {
			return int64(n), nil
		}
		return v, nil
	default:
		return v, nil
	}
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encode value")
	}
	return string(b), nil
}
