package store

import (
	"context"
	"database/sql"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
	"github.com/teranos/facet/logger"
	"github.com/teranos/facet/txn"
)

// Transact executes the compiled operations as one atomic SQL transaction.
// Synthesized negative ids allocate fresh entities; lookup refs resolve to
// existing entities or allocate them with their identity fact asserted.
func (c *Conn) Transact(ctx context.Context, ops []txn.Op) (*TxReport, error) {
	report := &TxReport{
		TempIDs: make(map[int64]int64),
		OpCount: len(ops),
	}
	if len(ops) == 0 {
		return report, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	for _, op := range ops {
		switch o := op.(type) {
		case txn.Upsert:
			e, err := c.resolveOpID(tx, o.ID, report, true)
			if err != nil {
				return nil, err
			}
			for _, av := range o.Attrs {
				if err := c.assertFact(tx, e, av, report); err != nil {
					return nil, err
				}
			}

		case txn.Retract:
			e, ok, err := c.findOpID(tx, o.ID, report)
			if err != nil {
				return nil, err
			}
			if !ok {
				// Nothing stored for this entity, nothing to retract.
				continue
			}
			if _, err := tx.Exec("DELETE FROM facts WHERE e = ? AND a = ?", e, o.Attr); err != nil {
				return nil, errors.Wrapf(err, "retract %s of entity %d", o.Attr, e)
			}

		default:
			return nil, errors.AssertionFailedf("unknown operation type %T", op)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit transaction")
	}

	c.logger.Debugw("Transaction committed",
		logger.FieldPartition, c.partition,
		logger.FieldOpCount, report.OpCount,
		logger.FieldTempIDCount, len(report.TempIDs),
	)
	return report, nil
}

// RetractEntity removes every fact of the addressed entity. Retracting a
// non-existent entity is a silent no-op, not an error.
func (c *Conn) RetractEntity(ctx context.Context, id txn.OpID) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	report := &TxReport{TempIDs: make(map[int64]int64)}
	e, ok, err := c.findOpID(tx, id, report)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if _, err := tx.Exec("DELETE FROM facts WHERE e = ?", e); err != nil {
		return errors.Wrapf(err, "retract entity %d", e)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}

	c.logger.Debugw("Entity retracted", logger.FieldPartition, c.partition, logger.FieldEntity, e)
	return nil
}

// resolveOpID maps an operation id to a final entity id, allocating when
// permitted: tempids always allocate, lookup refs allocate on first use with
// their identity fact asserted.
func (c *Conn) resolveOpID(tx *sql.Tx, id txn.OpID, report *TxReport, create bool) (int64, error) {
	switch ref := id.(type) {
	case txn.TempID:
		if e, ok := report.TempIDs[int64(ref)]; ok {
			return e, nil
		}
		e, err := allocateEntity(tx)
		if err != nil {
			return 0, err
		}
		report.TempIDs[int64(ref)] = e
		return e, nil

	case txn.LookupRef:
		attr, ok := c.cat.Get(ref.Attr)
		if !ok {
			return 0, errors.Newf("lookup on unknown attribute %q", ref.Attr)
		}

		if attr.NativeID {
			e, err := nativeID(ref.Value)
			if err != nil {
				return 0, err
			}
			var exists bool
			if err := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM entities WHERE e = ?)", e).Scan(&exists); err != nil {
				return 0, errors.Wrapf(err, "check native id %d", e)
			}
			if !exists {
				return 0, errors.Wrapf(errors.ErrNotFound, "native id %d", e)
			}
			return e, nil
		}

		encoded, err := encodeValue(attr, ref.Value)
		if err != nil {
			return 0, err
		}

		var e int64
		err = tx.QueryRow("SELECT e FROM facts WHERE a = ? AND v = ? LIMIT 1", ref.Attr, encoded).Scan(&e)
		switch {
		case err == sql.ErrNoRows:
			if !create {
				return 0, errors.Wrapf(errors.ErrNotFound, "lookup %s", ref)
			}
			e, err = allocateEntity(tx)
			if err != nil {
				return 0, err
			}
			if _, err := tx.Exec("INSERT INTO facts (e, a, v) VALUES (?, ?, ?)", e, ref.Attr, encoded); err != nil {
				return 0, errors.Wrapf(err, "assert identity %s", ref)
			}
			return e, nil
		case err != nil:
			return 0, errors.Wrapf(err, "resolve lookup %s", ref)
		default:
			return e, nil
		}

	default:
		return 0, errors.AssertionFailedf("unknown op id type %T", id)
	}
}

// findOpID resolves an operation id without allocating. The bool result
// reports whether the entity exists.
func (c *Conn) findOpID(tx *sql.Tx, id txn.OpID, report *TxReport) (int64, bool, error) {
	switch ref := id.(type) {
	case txn.TempID:
		if e, ok := report.TempIDs[int64(ref)]; ok {
			return e, true, nil
		}
		return 0, false, nil
	default:
		e, err := c.resolveOpID(tx, id, report, false)
		if errors.IsNotFound(err) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, err
		}
		return e, true, nil
	}
}

// assertFact writes one attribute value for one entity, honoring cardinality
// and uniqueness.
func (c *Conn) assertFact(tx *sql.Tx, e int64, av txn.AttrValue, report *TxReport) error {
	attr, ok := c.cat.Get(av.Attr)
	if !ok {
		return errors.Newf("assert on unknown attribute %q", av.Attr)
	}
	if attr.NativeID {
		// Native-id attributes ride the backend identity; no fact stored.
		return nil
	}

	encoded, err := c.encodeForStorage(tx, attr, av.Value, report)
	if err != nil {
		return err
	}

	// Uniqueness: no other entity may hold this value.
	if attr.Unique != catalog.UniqueNone || attr.Identity {
		var other int64
		err := tx.QueryRow("SELECT e FROM facts WHERE a = ? AND v = ? AND e <> ? LIMIT 1", av.Attr, encoded, e).Scan(&other)
		if err == nil {
			return errors.Newf("unique conflict: %s = %v already held by entity %d", av.Attr, av.Value, other)
		}
		if err != sql.ErrNoRows {
			return errors.Wrapf(err, "uniqueness check for %s", av.Attr)
		}
	}

	if attr.Cardinality == catalog.One {
		if _, err := tx.Exec("DELETE FROM facts WHERE e = ? AND a = ?", e, av.Attr); err != nil {
			return errors.Wrapf(err, "replace %s of entity %d", av.Attr, e)
		}
	} else {
		// Multi-valued: assert is set-add, drop an equal value first.
		if _, err := tx.Exec("DELETE FROM facts WHERE e = ? AND a = ? AND v = ?", e, av.Attr, encoded); err != nil {
			return errors.Wrapf(err, "dedupe %s of entity %d", av.Attr, e)
		}
	}

	if _, err := tx.Exec("INSERT INTO facts (e, a, v) VALUES (?, ?, ?)", e, av.Attr, encoded); err != nil {
		return errors.Wrapf(err, "assert %s of entity %d", av.Attr, e)
	}
	return nil
}

// encodeForStorage resolves ref and enum values to entity ids, and encodes
// everything else by kind.
func (c *Conn) encodeForStorage(tx *sql.Tx, attr catalog.Attribute, v any, report *TxReport) (string, error) {
	switch attr.Type {
	case catalog.KindEnum:
		s, ok := v.(string)
		if !ok {
			return "", errors.Newf("attribute %q: enum value must be a symbolic string, got %T", attr.Key, v)
		}
		qualified := attr.QualifyEnumValue(s)
		var e int64
		err := tx.QueryRow("SELECT e FROM idents WHERE ident = ?", qualified).Scan(&e)
		if err == sql.ErrNoRows {
			return "", errors.Newf("attribute %q: unknown enum value %q", attr.Key, qualified)
		}
		if err != nil {
			return "", errors.Wrapf(err, "resolve enum %q", qualified)
		}
		return encodeRef(e), nil

	case catalog.KindRef:
		if tid, ok := v.(txn.TempID); ok {
			e, mapped := report.TempIDs[int64(tid)]
			if !mapped {
				return "", errors.Newf("attribute %q: ref to unresolved %s", attr.Key, tid)
			}
			return encodeRef(e), nil
		}
		e, err := c.resolveOpID(tx, txn.LookupRef{Attr: attr.Target, Value: v}, report, true)
		if err != nil {
			return "", errors.Wrapf(err, "attribute %q: resolve ref", attr.Key)
		}
		return encodeRef(e), nil

	default:
		return encodeValue(attr, v)
	}
}

func allocateEntity(tx *sql.Tx) (int64, error) {
	res, err := tx.Exec("INSERT INTO entities DEFAULT VALUES")
	if err != nil {
		return 0, errors.Wrap(err, "allocate entity")
	}
	e, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "read allocated entity id")
	}
	return e, nil
}

func nativeID(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, errors.Newf("native id must be numeric, got %T", v)
	}
}
