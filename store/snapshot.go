package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
)

// DBID is the projection key carrying the backend entity id.
const DBID = "db/id"

// DBIdent is the projection key carrying a symbolic ident. Enum values pull
// as nested records holding only this key; the resolver layer flattens them.
const DBIdent = "db/ident"

// Snapshot is a consistent read-only view of one partition. All resolvers
// answering one incoming query share a single snapshot so they never observe
// a mix of pre- and post-commit state from concurrent writers.
type Snapshot struct {
	tx  *sql.Tx
	cat *catalog.Catalog
}

// ReadSnapshot opens a read snapshot. Callers must Close it.
func (c *Conn) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin read snapshot")
	}
	return &Snapshot{tx: tx, cat: c.cat}, nil
}

// Close releases the snapshot.
func (s *Snapshot) Close() error {
	return s.tx.Rollback()
}

// EntityID resolves an identity attribute value to the backend entity id.
func (s *Snapshot) EntityID(attrKey string, value any) (int64, bool, error) {
	attr, ok := s.cat.Get(attrKey)
	if !ok {
		return 0, false, errors.Newf("lookup on unknown attribute %q", attrKey)
	}

	if attr.NativeID {
		e, err := nativeID(value)
		if err != nil {
			return 0, false, err
		}
		var exists bool
		if err := s.tx.QueryRow("SELECT EXISTS(SELECT 1 FROM entities WHERE e = ?)", e).Scan(&exists); err != nil {
			return 0, false, errors.Wrapf(err, "check native id %d", e)
		}
		return e, exists, nil
	}

	encoded, err := encodeValue(attr, value)
	if err != nil {
		return 0, false, err
	}
	var e int64
	err = s.tx.QueryRow("SELECT e FROM facts WHERE a = ? AND v = ? LIMIT 1", attrKey, encoded).Scan(&e)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "lookup %s", attrKey)
	}
	return e, true, nil
}

// Pull projects the requested attributes of one entity. A pattern element is
// either an attribute key or a map of ref attribute key to sub-pattern for
// nested projection. An empty pattern pulls every stored attribute. Enum
// values project as nested symbolic-reference records.
func (s *Snapshot) Pull(e int64, pattern []any) (map[string]any, error) {
	out := map[string]any{DBID: e}

	if len(pattern) == 0 {
		attrs, err := s.entityAttrs(e)
		if err != nil {
			return nil, err
		}
		pattern = make([]any, len(attrs))
		for i, a := range attrs {
			pattern[i] = a
		}
	}

	for _, p := range pattern {
		switch item := p.(type) {
		case string:
			if err := s.pullAttr(e, item, nil, out); err != nil {
				return nil, err
			}
		case map[string][]any:
			for attrKey, sub := range item {
				if err := s.pullAttr(e, attrKey, sub, out); err != nil {
					return nil, err
				}
			}
		default:
			return nil, errors.Newf("invalid projection element %T", p)
		}
	}
	return out, nil
}

// pullAttr pulls one attribute of one entity into out, shaping refs and
// enums as nested records and recursing into sub-patterns.
func (s *Snapshot) pullAttr(e int64, attrKey string, sub []any, out map[string]any) error {
	attr, ok := s.cat.Get(attrKey)
	if !ok {
		return errors.Newf("projection of unknown attribute %q", attrKey)
	}
	if attr.NativeID {
		// The native id rides db/id; nothing stored under the attribute.
		return nil
	}

	rows, err := s.tx.Query("SELECT v FROM facts WHERE e = ? AND a = ? ORDER BY rowid", e, attrKey)
	if err != nil {
		return errors.Wrapf(err, "pull %s of entity %d", attrKey, e)
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return errors.Wrap(err, "scan fact")
		}
		v, err := decodeValue(attr, raw)
		if err != nil {
			return err
		}
		shaped, err := s.shapeValue(attr, v, sub)
		if err != nil {
			return err
		}
		values = append(values, shaped)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "pull %s of entity %d", attrKey, e)
	}

	if len(values) == 0 {
		return nil
	}
	if attr.Cardinality == catalog.Many {
		out[attrKey] = values
	} else {
		out[attrKey] = values[0]
	}
	return nil
}

// shapeValue turns decoded ref and enum ids into nested records.
func (s *Snapshot) shapeValue(attr catalog.Attribute, v any, sub []any) (any, error) {
	switch attr.Type {
	case catalog.KindEnum:
		target, ok := v.(int64)
		if !ok {
			return nil, errors.Newf("attribute %q: corrupt enum ref %v", attr.Key, v)
		}
		ident, found, err := s.Ident(target)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.Newf("attribute %q: enum ref %d has no ident", attr.Key, target)
		}
		return map[string]any{DBIdent: ident}, nil

	case catalog.KindRef:
		target, ok := v.(int64)
		if !ok {
			return nil, errors.Newf("attribute %q: corrupt ref %v", attr.Key, v)
		}
		if len(sub) > 0 {
			return s.Pull(target, sub)
		}
		return map[string]any{DBID: target}, nil

	default:
		return v, nil
	}
}

// entityAttrs lists the attributes stored for one entity, in first-assertion
// order.
func (s *Snapshot) entityAttrs(e int64) ([]string, error) {
	rows, err := s.tx.Query("SELECT a FROM facts WHERE e = ? GROUP BY a ORDER BY MIN(rowid)", e)
	if err != nil {
		return nil, errors.Wrapf(err, "attributes of entity %d", e)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, errors.Wrap(err, "scan attribute key")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Ident resolves a symbolic-ident entity to its ident string.
func (s *Snapshot) Ident(e int64) (string, bool, error) {
	var ident string
	err := s.tx.QueryRow("SELECT ident FROM idents WHERE e = ?", e).Scan(&ident)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "resolve ident of entity %d", e)
	}
	return ident, true, nil
}

// EntitiesWith returns the distinct entities holding at least one fact for
// the attribute, in id order.
func (s *Snapshot) EntitiesWith(attrKey string) ([]int64, error) {
	rows, err := s.tx.Query("SELECT DISTINCT e FROM facts WHERE a = ? ORDER BY e", attrKey)
	if err != nil {
		return nil, errors.Wrapf(err, "entities with %s", attrKey)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var e int64
		if err := rows.Scan(&e); err != nil {
			return nil, errors.Wrap(err, "scan entity id")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AttrValues returns every stored value of the attribute, decoded, in
// insertion order.
func (s *Snapshot) AttrValues(attrKey string) ([]any, error) {
	attr, ok := s.cat.Get(attrKey)
	if !ok {
		return nil, errors.Newf("values of unknown attribute %q", attrKey)
	}

	rows, err := s.tx.Query("SELECT v FROM facts WHERE a = ? ORDER BY rowid", attrKey)
	if err != nil {
		return nil, errors.Wrapf(err, "values of %s", attrKey)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "scan fact value")
		}
		v, err := decodeValue(attr, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// IdentityValues reads the identity attribute value of many entities in one
// query, keyed by entity id. Entities without the attribute are absent from
// the result.
func (s *Snapshot) IdentityValues(attrKey string, es []int64) (map[int64]any, error) {
	out := make(map[int64]any, len(es))
	if len(es) == 0 {
		return out, nil
	}

	attr, ok := s.cat.Get(attrKey)
	if !ok {
		return nil, errors.Newf("identity values of unknown attribute %q", attrKey)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(es)), ",")
	args := make([]any, 0, len(es)+1)
	args = append(args, attrKey)
	for _, e := range es {
		args = append(args, e)
	}

	rows, err := s.tx.Query(
		"SELECT e, v FROM facts WHERE a = ? AND e IN ("+placeholders+")", args...)
	if err != nil {
		return nil, errors.Wrapf(err, "identity values of %s", attrKey)
	}
	defer rows.Close()

	for rows.Next() {
		var e int64
		var raw string
		if err := rows.Scan(&e, &raw); err != nil {
			return nil, errors.Wrap(err, "scan identity value")
		}
		v, err := decodeValue(attr, raw)
		if err != nil {
			return nil, err
		}
		out[e] = v
	}
	return out, rows.Err()
}
