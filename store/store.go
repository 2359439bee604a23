// Package store persists facts in an embedded SQLite database, one database
// per schema partition. It executes compiled transaction operations
// atomically, applies synthesized schemas, and serves consistent read
// snapshots for resolvers.
package store

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/db"
	"github.com/teranos/facet/logger"
	"github.com/teranos/facet/schema"
	"github.com/teranos/facet/txn"
)

// TxReport describes one committed transaction.
type TxReport struct {
	// TempIDs maps synthesized negative ids to the final entity ids the
	// backend assigned.
	TempIDs map[int64]int64

	// OpCount is the number of operations executed.
	OpCount int
}

// Connection is the transactional store surface the compiler's output runs
// against. The save/delete orchestrators and the resolver generator depend
// only on this interface.
type Connection interface {
	// Partition names the schema partition this connection serves.
	Partition() string

	// ApplySchema installs a synthesized schema. Reapplying an identical
	// schema is a no-op; incompatible changes fail with a diff.
	ApplySchema(ctx context.Context, s *schema.Schema) error

	// Transact executes the operations as one atomic transaction.
	Transact(ctx context.Context, ops []txn.Op) (*TxReport, error)

	// RetractEntity removes every fact of the addressed entity. Retracting
	// a non-existent entity is a silent no-op.
	RetractEntity(ctx context.Context, id txn.OpID) error

	// ReadSnapshot opens a consistent read-only view. All resolvers
	// answering one request share one snapshot.
	ReadSnapshot(ctx context.Context) (*Snapshot, error)

	// Close releases the underlying database.
	Close() error
}

// Conn is the SQLite-backed Connection.
type Conn struct {
	db        *sql.DB
	partition string
	cat       *catalog.Catalog
	logger    *zap.SugaredLogger
}

var _ Connection = (*Conn)(nil)

// Open opens (and migrates) the SQLite database at path and wraps it in a
// connection serving the given partition.
func Open(path, partition string, cat *catalog.Catalog, log *zap.SugaredLogger) (*Conn, error) {
	sqlDB, err := db.OpenWithMigrations(path, log)
	if err != nil {
		return nil, err
	}
	return Wrap(sqlDB, partition, cat, log), nil
}

// Wrap builds a connection around an already-open database. Tests use this
// with in-memory databases and sqlmock.
func Wrap(sqlDB *sql.DB, partition string, cat *catalog.Catalog, log *zap.SugaredLogger) *Conn {
	return &Conn{
		db:        sqlDB,
		partition: partition,
		cat:       cat,
		logger:    logger.Or(log),
	}
}

// Partition names the schema partition this connection serves.
func (c *Conn) Partition() string {
	return c.partition
}

// Close releases the underlying database.
func (c *Conn) Close() error {
	return c.db.Close()
}
