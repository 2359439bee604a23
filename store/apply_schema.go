package store

import (
	"context"
	"database/sql"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
	"github.com/teranos/facet/logger"
	"github.com/teranos/facet/schema"
)

// ApplySchema installs a synthesized schema into the connection's partition.
//
// Reapplying an identical schema is a no-op success. Additive changes install
// the new attributes. Incompatible changes (type, cardinality or uniqueness)
// fail with ErrSchemaConflict carrying the diff. Enum seeds install
// idempotently on every apply.
func (c *Conn) ApplySchema(ctx context.Context, s *schema.Schema) error {
	installed, err := c.installedSchema(ctx)
	if err != nil {
		return err
	}

	diff := schema.Compare(installed, s)
	if err := diff.Err(); err != nil {
		return err
	}
	if diff.Empty() {
		c.logger.Debugw("Schema unchanged", logger.FieldPartition, c.partition, logger.FieldCount, len(s.Attrs))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	for _, a := range diff.Added {
		_, err := tx.Exec(
			"INSERT INTO schema_attrs (partition, key, value_type, many, unique_mode) VALUES (?, ?, ?, ?, ?)",
			c.partition, a.Key, a.ValueType, boolInt(a.Many), a.Unique.String(),
		)
		if err != nil {
			return errors.Wrapf(err, "install attribute %q", a.Key)
		}
	}

	for _, seed := range s.Seeds {
		if err := ensureSeed(tx, seed); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit schema")
	}

	if len(diff.Added) > 0 {
		c.logger.Infow("Schema installed",
			logger.FieldPartition, c.partition,
			"added", len(diff.Added),
			"seeds", len(s.Seeds),
		)
	}
	return nil
}

// installedSchema reads the schema currently installed for this partition.
func (c *Conn) installedSchema(ctx context.Context) (*schema.Schema, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT key, value_type, many, unique_mode FROM schema_attrs WHERE partition = ? ORDER BY rowid", c.partition)
	if err != nil {
		return nil, errors.Wrapf(err, "read installed schema for %q", c.partition)
	}
	defer rows.Close()

	s := &schema.Schema{Partition: c.partition}
	for rows.Next() {
		var a schema.AttrSchema
		var many int
		var unique string
		if err := rows.Scan(&a.Key, &a.ValueType, &many, &unique); err != nil {
			return nil, errors.Wrap(err, "scan schema attribute")
		}
		a.Many = many != 0
		a.Unique = parseUnique(unique)
		s.Attrs = append(s.Attrs, a)
	}
	return s, rows.Err()
}

// ensureSeed installs one symbolic-ident entity, creating it on first apply
// and refreshing the label on later ones.
func ensureSeed(tx *sql.Tx, seed schema.SeedFact) error {
	var e int64
	err := tx.QueryRow("SELECT e FROM idents WHERE ident = ?", seed.Ident).Scan(&e)
	switch {
	case err == sql.ErrNoRows:
		e, err = allocateEntity(tx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO idents (e, ident, label) VALUES (?, ?, ?)", e, seed.Ident, seed.Label); err != nil {
			return errors.Wrapf(err, "seed ident %q", seed.Ident)
		}
		return nil
	case err != nil:
		return errors.Wrapf(err, "check ident %q", seed.Ident)
	default:
		if seed.Label != "" {
			if _, err := tx.Exec("UPDATE idents SET label = ? WHERE e = ?", seed.Label, e); err != nil {
				return errors.Wrapf(err, "update ident label %q", seed.Ident)
			}
		}
		return nil
	}
}

func parseUnique(s string) catalog.Uniqueness {
	switch s {
	case "value":
		return catalog.UniqueValue
	case "identity":
		return catalog.UniqueIdentity
	default:
		return catalog.UniqueNone
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
