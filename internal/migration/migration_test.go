package migration

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/routinely/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func memFS(files map[string]string) fstest.MapFS {
	m := fstest.MapFS{}
	for name, content := range files {
		m[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return m
}

func TestGetCurrentVersion(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(setupTestDB(t), memFS(map[string]string{
		"001_test.sql": "CREATE TABLE test (id INTEGER);",
	}), SQLite)

	version, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	if err := runner.SetVersion(ctx, 5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	version, err = runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
}

func TestReadMigrationFiles(t *testing.T) {
	runner := NewRunner(setupTestDB(t), memFS(map[string]string{
		"002_second.sql": "SELECT 2;",
		"001_first.sql":  "SELECT 1;",
		"README.md":      "ignored",
	}), SQLite)

	ms, err := runner.ReadMigrationFiles()
	if err != nil {
		t.Fatalf("ReadMigrationFiles failed: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(ms))
	}
	if ms[0].Version != 1 || ms[0].Name != "first" || ms[1].Version != 2 {
		t.Errorf("unexpected migration order: %+v", ms)
	}
}

func TestApplyMigrationsIncremental(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	files := map[string]string{"001_a.sql": "CREATE TABLE a (id INTEGER);"}
	applied, err := NewRunner(db, memFS(files), SQLite).ApplyMigrations(ctx)
	if err != nil || applied != 1 {
		t.Fatalf("first apply: applied=%d err=%v", applied, err)
	}

	files["002_b.sql"] = "CREATE TABLE b (id INTEGER);"
	runner := NewRunner(db, memFS(files), SQLite)
	applied, err = runner.ApplyMigrations(ctx)
	if err != nil || applied != 1 {
		t.Fatalf("second apply: applied=%d err=%v", applied, err)
	}

	applied, err = runner.ApplyMigrations(ctx)
	if err != nil || applied != 0 {
		t.Fatalf("no-op apply: applied=%d err=%v", applied, err)
	}

	if v, _ := runner.GetCurrentVersion(ctx); v != 2 {
		t.Errorf("expected version 2, got %d", v)
	}
}

func TestMigrationRollbackOnError(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, memFS(map[string]string{
		"001_ok.sql":     "CREATE TABLE ok (id INTEGER);",
		"002_broken.sql": "CREATE TABLE broken (id INTEGER); THIS IS NOT SQL;",
	}), SQLite)

	applied, err := runner.ApplyMigrations(ctx)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if applied != 1 {
		t.Errorf("expected 1 applied migration before failure, got %d", applied)
	}
	if v, _ := runner.GetCurrentVersion(ctx); v != 1 {
		t.Errorf("expected version to stay at 1, got %d", v)
	}
}

func TestValidateVersion(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, memFS(map[string]string{
		"001_a.sql": "CREATE TABLE a (id INTEGER);",
	}), SQLite)

	if err := runner.ValidateVersion(ctx); err == nil || !strings.Contains(err.Error(), "older") {
		t.Errorf("expected older-schema error, got %v", err)
	}

	if _, err := runner.ApplyMigrations(ctx); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if err := runner.ValidateVersion(ctx); err != nil {
		t.Errorf("expected compatible schema, got %v", err)
	}

	if err := runner.SetVersion(ctx, 9); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	if err := runner.ValidateVersion(ctx); err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("expected newer-schema error, got %v", err)
	}
}

func TestMigrationFilenameValidation(t *testing.T) {
	tests := map[string]string{
		"bad name":     "init.sql",
		"non numeric":  "abc_init.sql",
		"zero version": "000_init.sql",
	}
	for name, file := range tests {
		t.Run(name, func(t *testing.T) {
			runner := NewRunner(setupTestDB(t), memFS(map[string]string{file: "SELECT 1;"}), SQLite)
			if _, err := runner.ReadMigrationFiles(); err == nil {
				t.Errorf("expected error for %s", file)
			}
		})
	}
}

func TestDuplicateVersionDetection(t *testing.T) {
	runner := NewRunner(setupTestDB(t), memFS(map[string]string{
		"001_a.sql": "SELECT 1;",
		"01_b.sql":  "SELECT 1;",
	}), SQLite)
	if _, err := runner.ReadMigrationFiles(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate version error, got %v", err)
	}
}

func TestEmbeddedSQLiteSchemaApplies(t *testing.T) {
	ctx := context.Background()
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		t.Fatalf("fs.Sub failed: %v", err)
	}
	db := setupTestDB(t)
	runner := NewRunner(db, sub, SQLite)
	if _, err := runner.ApplyMigrations(ctx); err != nil {
		t.Fatalf("embedded migrations failed: %v", err)
	}

	for _, table := range []string{"routines", "completion_entries", "user_preferences", "tasks"} {
		var n int
		if err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n); err != nil || n != 1 {
			t.Errorf("table %s missing (n=%d, err=%v)", table, n, err)
		}
	}

	if _, err := db.Exec(`INSERT INTO completion_entries (id, routine_id, owner_id, completed_at, date)
		VALUES ('e1', 'r1', 'o1', '2024-01-15T06:00:00Z', '2024-01-15')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM completion_entries WHERE id = 'e1'`); err == nil {
		t.Error("expected ledger delete to be rejected")
	}
	if _, err := db.Exec(`UPDATE completion_entries SET date = '2024-01-16' WHERE id = 'e1'`); err == nil {
		t.Error("expected ledger update to be rejected")
	}
}
