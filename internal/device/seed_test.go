package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const seedYAML = `
devices:
  - id: bf001
    name: Lounge Vacuum
    enabled: true
    options:
      powergo_dp: "2"
      status_dp: "5"
      battery_dp: "8"
      fan_speeds: "low,normal,high"
  - id: bf002
    name: Hallway Vacuum
    enabled: false
    options:
      powergo_dp: "2"
      status_dp: "5"
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing seed file: %v", err)
	}
	return path
}

func TestSeedFromFile(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	created, err := reg.SeedFromFile(ctx, writeSeedFile(t, seedYAML))
	if err != nil {
		t.Fatalf("SeedFromFile() error = %v", err)
	}
	if created != 2 {
		t.Errorf("SeedFromFile() created = %d, want 2", created)
	}

	got, err := reg.GetDevice(ctx, "bf001")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Options.BatteryDP != "8" {
		t.Errorf("BatteryDP = %q, want 8", got.Options.BatteryDP)
	}
	if got.Options.FanSpeeds != "low,normal,high" {
		t.Errorf("FanSpeeds = %q", got.Options.FanSpeeds)
	}

	parked, err := reg.GetDevice(ctx, "bf002")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if parked.Enabled {
		t.Error("bf002 Enabled = true, want false")
	}
}

func TestSeedFromFile_SkipsExisting(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	existing := testDevice("bf001", "Renamed By Operator")
	if err := reg.CreateDevice(ctx, existing); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	created, err := reg.SeedFromFile(ctx, writeSeedFile(t, seedYAML))
	if err != nil {
		t.Fatalf("SeedFromFile() error = %v", err)
	}
	if created != 1 {
		t.Errorf("SeedFromFile() created = %d, want 1", created)
	}

	got, err := reg.GetDevice(ctx, "bf001")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != "Renamed By Operator" {
		t.Errorf("seed clobbered existing device, Name = %q", got.Name)
	}
}

func TestSeedFromFile_MissingFile(t *testing.T) {
	reg := setupRegistry(t)

	if _, err := reg.SeedFromFile(context.Background(), "/nonexistent/devices.yaml"); err == nil {
		t.Error("SeedFromFile() error = nil for missing file")
	}
}

func TestSeedFromFile_InvalidDevice(t *testing.T) {
	reg := setupRegistry(t)

	bad := `
devices:
  - id: bf001
    name: Broken
    enabled: true
    options:
      status_dp: "5"
`
	if _, err := reg.SeedFromFile(context.Background(), writeSeedFile(t, bad)); err == nil {
		t.Error("SeedFromFile() error = nil for invalid options")
	}
}
