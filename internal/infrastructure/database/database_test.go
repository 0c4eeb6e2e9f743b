package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB opens a fresh database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "gateway.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	return db
}

// ─── Opening ───────────────────────────────────────────────────────

func TestOpenCreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gateway.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing: %v", err)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
}

func TestOpenCreatesMissingDirectories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "state", "gateway.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("database directory missing: %v", err)
	}
}

func TestOpenWithoutWAL(t *testing.T) {
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "gateway.db"),
		WALMode:     false,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() without WAL error = %v", err)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestCloseIsSafeTwice(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() after nil error = %v", err)
	}
}

func TestStatsSingleWriter(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}

// ─── Queries and transactions ──────────────────────────────────────

func TestExecAndQuery(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if _, err := db.ExecContext(ctx,
		"CREATE TABLE runs (id INTEGER PRIMARY KEY, device_id TEXT NOT NULL)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	result, err := db.ExecContext(ctx, "INSERT INTO runs (device_id) VALUES (?)", "vacuum-1")
	if err != nil {
		t.Fatalf("inserting row: %v", err)
	}
	if id, _ := result.LastInsertId(); id != 1 { //nolint:errcheck // sqlite always reports
		t.Errorf("LastInsertId() = %d, want 1", id)
	}

	var deviceID string
	if err := db.QueryRowContext(ctx, "SELECT device_id FROM runs WHERE id = 1").Scan(&deviceID); err != nil {
		t.Fatalf("selecting row: %v", err)
	}
	if deviceID != "vacuum-1" {
		t.Errorf("device_id = %q, want %q", deviceID, "vacuum-1")
	}
}

func TestTransactionCommitAndRollback(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if _, err := db.ExecContext(ctx,
		"CREATE TABLE runs (id INTEGER PRIMARY KEY, outcome TEXT NOT NULL)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	countOutcome := func(outcome string) int {
		var n int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM runs WHERE outcome = ?", outcome).Scan(&n); err != nil {
			t.Fatalf("counting rows: %v", err)
		}
		return n
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO runs (outcome) VALUES (?)", "kept"); err != nil {
		t.Fatalf("insert in tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if got := countOutcome("kept"); got != 1 {
		t.Errorf("committed rows = %d, want 1", got)
	}

	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO runs (outcome) VALUES (?)", "discarded"); err != nil {
		t.Fatalf("insert in tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if got := countOutcome("discarded"); got != 0 {
		t.Errorf("rolled-back rows = %d, want 0", got)
	}
}
