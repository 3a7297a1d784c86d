package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var exampleMigrations = []Migration{
	{
		Version:     2,
		Description: "add notes column",
		Up:          `ALTER TABLE test_table ADD COLUMN notes TEXT NOT NULL DEFAULT ''`,
		Down:        `ALTER TABLE test_table DROP COLUMN notes`,
	},
	{
		Version:     1,
		Description: "add example test table",
		Up: `
			CREATE TABLE IF NOT EXISTS test_table (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL
			)
		`,
		Down: `DROP TABLE IF EXISTS test_table`,
	},
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "migrations.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	// Registered out of order; Apply must sort by version
	manager := NewManager(exampleMigrations...)

	version, err := manager.Apply(ctx, db)
	if err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	if _, err := db.Exec("INSERT INTO test_table (id, name, notes) VALUES (1, 'test', 'n')"); err != nil {
		t.Fatalf("migrated table not usable: %v", err)
	}

	// Applying again is a no-op
	version, err = manager.Apply(ctx, db)
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2 after re-apply, got %d", version)
	}

	if err := manager.Rollback(ctx, db); err != nil {
		t.Fatalf("failed to rollback migration: %v", err)
	}
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if current != 1 {
		t.Errorf("expected version 1 after rollback, got %d", current)
	}
	if _, err := db.Exec("INSERT INTO test_table (id, name, notes) VALUES (2, 'test', 'n')"); err == nil {
		t.Error("notes column should have been dropped")
	}
}

func TestRollbackWithNothingApplied(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	manager := NewManager()
	if _, err := manager.Apply(ctx, db); err != nil {
		t.Fatalf("apply with no migrations failed: %v", err)
	}
	if err := manager.Rollback(ctx, db); err == nil {
		t.Error("expected error rolling back an empty schema")
	}
}
