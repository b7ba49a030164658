// Package db tests for database migration management.
package db

import (
	"database/sql"
	"strings"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// testMigrations is a small synthetic migration set.
var testMigrations = fstest.MapFS{
	"V1__create_widgets.up.sql": &fstest.MapFile{
		Data: []byte(`CREATE TABLE widgets (id TEXT PRIMARY KEY, name TEXT NOT NULL);`),
	},
	"V1__create_widgets.down.sql": &fstest.MapFile{
		Data: []byte(`DROP TABLE widgets;`),
	},
	"V2__add_color.up.sql": &fstest.MapFile{
		Data: []byte(`ALTER TABLE widgets ADD COLUMN color TEXT NOT NULL DEFAULT '';`),
	},
	"V2__add_color.down.sql": &fstest.MapFile{
		Data: []byte(`ALTER TABLE widgets DROP COLUMN color;`),
	},
}

// TestInitialize verifies schema_migrations table creation.
func TestInitialize(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, testMigrations)

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	// Verify table exists
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_migrations'").Scan(&tableName)
	if err != nil {
		t.Errorf("schema_migrations table not found: %v", err)
	}

	// Verify table structure by inserting a test row
	_, err = db.Exec("INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
		1, 123456, "test_migration", strings.Repeat("a", 64))
	if err != nil {
		t.Errorf("schema_migrations table structure invalid: %v", err)
	}
}

// TestUpAppliesAllPending verifies Up applies migrations in order and
// records them.
func TestUpAppliesAllPending(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, testMigrations)

	if err := m.Up(); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion() failed: %v", err)
	}
	if version != 2 {
		t.Errorf("CurrentVersion() = %d, want 2", version)
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations() failed: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("GetAppliedMigrations() returned %d migrations, want 2", len(applied))
	}
	if applied[0].Description != "create_widgets" {
		t.Errorf("migration 1 description = %q, want create_widgets", applied[0].Description)
	}
	if len(applied[0].Checksum) != 64 {
		t.Errorf("checksum length = %d, want 64", len(applied[0].Checksum))
	}

	// The V2 column must exist
	if _, err := db.Exec("INSERT INTO widgets (id, name, color) VALUES ('w1', 'gear', 'red')"); err != nil {
		t.Errorf("migrated schema rejects insert: %v", err)
	}
}

// TestUpIsIdempotent verifies that re-running Up applies nothing new.
func TestUpIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, testMigrations)

	if err := m.Up(); err != nil {
		t.Fatalf("first Up() failed: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("second Up() failed: %v", err)
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations() failed: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("second Up() changed applied count to %d, want 2", len(applied))
	}
}

// TestDownRollsBackLast verifies Down undoes one migration at a time.
func TestDownRollsBackLast(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, testMigrations)

	if err := m.Up(); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}
	if err := m.Down(); err != nil {
		t.Fatalf("Down() failed: %v", err)
	}

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion() failed: %v", err)
	}
	if version != 1 {
		t.Errorf("CurrentVersion() after Down = %d, want 1", version)
	}

	// The V2 column must be gone
	if _, err := db.Exec("INSERT INTO widgets (id, name, color) VALUES ('w1', 'gear', 'red')"); err == nil {
		t.Error("color column still present after rollback")
	}
}

// TestDownWithoutMigrations verifies Down fails cleanly at version zero.
func TestDownWithoutMigrations(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, testMigrations)

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if err := m.Down(); err == nil {
		t.Error("Down() with no applied migrations should fail")
	}
}

// TestEmbeddedMigrationsApply verifies the real schema applies cleanly.
func TestEmbeddedMigrationsApply(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, MigrationsFS())

	if err := m.Up(); err != nil {
		t.Fatalf("Up() failed on embedded migrations: %v", err)
	}

	for _, table := range []string{"users", "sessions", "scrapbooks", "posts", "shared_access"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found after migration: %v", table, err)
		}
	}
}
