package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/konewka17/localtuya/internal/vacuum"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Create devices table matching the schema
	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			options TEXT NOT NULL DEFAULT '{}',
			state TEXT NOT NULL DEFAULT '{}',
			last_seen TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_devices_enabled ON devices(enabled);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testDevice creates a device for testing.
func testDevice(id, name string) *Device {
	return &Device{
		ID:      id,
		Name:    name,
		Enabled: true,
		Options: vacuum.Options{
			PowerDP:   "2",
			StatusDP:  "5",
			BatteryDP: "8",
		},
	}
}

// ─── CRUD ───

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	want := testDevice("bf001", "Lounge Vacuum")
	if err := repo.Create(ctx, want); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "bf001")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Lounge Vacuum" {
		t.Errorf("Name = %q, want %q", got.Name, "Lounge Vacuum")
	}
	if !got.Enabled {
		t.Error("Enabled = false, want true")
	}
	if got.Options.PowerDP != "2" || got.Options.StatusDP != "5" {
		t.Errorf("Options not round-tripped: %+v", got.Options)
	}
	if got.State != nil {
		t.Errorf("State = %+v, want nil for a new device", got.State)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}
}

func TestSQLiteRepository_CreateDuplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("bf001", "First")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Create(ctx, testDevice("bf001", "Second"))
	if !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Create() duplicate error = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("bf001", "Lounge Vacuum")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d.Name = "Hallway Vacuum"
	d.Enabled = false
	d.Options.FanSpeedDP = "14"
	if err := repo.Update(ctx, d); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "bf001")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Hallway Vacuum" {
		t.Errorf("Name = %q after update", got.Name)
	}
	if got.Enabled {
		t.Error("Enabled = true after disabling")
	}
	if got.Options.FanSpeedDP != "14" {
		t.Errorf("FanSpeedDP = %q, want 14", got.Options.FanSpeedDP)
	}
}

func TestSQLiteRepository_UpdateNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.Update(context.Background(), testDevice("missing", "Ghost"))
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("bf001", "Lounge Vacuum")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, "bf001"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := repo.GetByID(ctx, "bf001")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrDeviceNotFound", err)
	}

	if err := repo.Delete(ctx, "bf001"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrDeviceNotFound", err)
	}
}

// ─── Listing ───

func TestSQLiteRepository_List(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, d := range []*Device{
		testDevice("bf002", "Bedroom"),
		testDevice("bf001", "Attic"),
	} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.ID, err)
		}
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("List() returned %d devices, want 2", len(devices))
	}
	// Ordered by name
	if devices[0].Name != "Attic" || devices[1].Name != "Bedroom" {
		t.Errorf("List() order = %q, %q; want Attic, Bedroom", devices[0].Name, devices[1].Name)
	}
}

func TestSQLiteRepository_ListEnabled(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	enabled := testDevice("bf001", "Active")
	disabled := testDevice("bf002", "Parked")
	disabled.Enabled = false

	for _, d := range []*Device{enabled, disabled} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.ID, err)
		}
	}

	devices, err := repo.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() error = %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "bf001" {
		t.Errorf("ListEnabled() = %+v, want only bf001", devices)
	}
}

// ─── State and last seen ───

func TestSQLiteRepository_UpdateState(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("bf001", "Lounge Vacuum")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	battery := 87
	status := vacuum.Status{
		State:      vacuum.StateCleaning,
		Attributes: vacuum.Attributes{BatteryLevel: &battery},
	}
	if err := repo.UpdateState(ctx, "bf001", status); err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "bf001")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.State == nil {
		t.Fatal("State = nil after UpdateState")
	}
	if got.State.State != vacuum.StateCleaning {
		t.Errorf("State = %q, want cleaning", got.State.State)
	}
	if got.State.Attributes.BatteryLevel == nil || *got.State.Attributes.BatteryLevel != 87 {
		t.Errorf("BatteryLevel = %v, want 87", got.State.Attributes.BatteryLevel)
	}
}

func TestSQLiteRepository_UpdateStateNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.UpdateState(context.Background(), "missing", vacuum.Status{State: vacuum.StateIdle})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("UpdateState() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_UpdateLastSeen(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("bf001", "Lounge Vacuum")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	seen := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	if err := repo.UpdateLastSeen(ctx, "bf001", seen); err != nil {
		t.Fatalf("UpdateLastSeen() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "bf001")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, seen)
	}
}
