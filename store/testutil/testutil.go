// Package testutil provides shared database setup for store-level tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/teranos/facet/db"
)

// SetupTestDB opens a migrated SQLite database in a per-test temp directory.
// The database is closed automatically when the test finishes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "facet-test.db")
	sqlDB, err := db.OpenWithMigrations(path, nil)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}
