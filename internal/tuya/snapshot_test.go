package tuya

import (
	"errors"
	"testing"
)

// ─── String accessor ───────────────────────────────────────────────

func TestSnapshotString(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		dp      DPID
		want    string
		wantErr error
	}{
		{"string value", Snapshot{"5": "standby"}, "5", "standby", nil},
		{"numeric value formatted", Snapshot{"6": float64(3)}, "6", "3", nil},
		{"fractional numeric", Snapshot{"6": 3.5}, "6", "3.5", nil},
		{"bool value formatted", Snapshot{"2": true}, "2", "true", nil},
		{"missing datapoint", Snapshot{"5": "standby"}, "9", "", ErrDPNotPresent},
		{"unsupported type", Snapshot{"5": []any{1}}, "5", "", ErrDPType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.snap.String(tt.dp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("String(%s) error = %v, want %v", tt.dp, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("String(%s) = %q, want %q", tt.dp, got, tt.want)
			}
		})
	}
}

// ─── Int accessor ──────────────────────────────────────────────────

func TestSnapshotInt(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		dp      DPID
		want    int
		wantErr error
	}{
		{"json number", Snapshot{"8": float64(87)}, "8", 87, nil},
		{"native int", Snapshot{"8": 42}, "8", 42, nil},
		{"numeric string", Snapshot{"8": "12"}, "8", 12, nil},
		{"non-numeric string", Snapshot{"8": "low"}, "8", 0, ErrDPType},
		{"missing datapoint", Snapshot{}, "8", 0, ErrDPNotPresent},
		{"bool rejected", Snapshot{"8": true}, "8", 0, ErrDPType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.snap.Int(tt.dp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Int(%s) error = %v, want %v", tt.dp, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Int(%s) = %d, want %d", tt.dp, got, tt.want)
			}
		})
	}
}

// ─── Bool accessor ─────────────────────────────────────────────────

func TestSnapshotBool(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		dp      DPID
		want    bool
		wantErr error
	}{
		{"native true", Snapshot{"2": true}, "2", true, nil},
		{"native false", Snapshot{"2": false}, "2", false, nil},
		{"string true", Snapshot{"2": "true"}, "2", true, nil},
		{"unparseable string", Snapshot{"2": "on"}, "2", false, ErrDPType},
		{"missing datapoint", Snapshot{}, "2", false, ErrDPNotPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.snap.Bool(tt.dp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Bool(%s) error = %v, want %v", tt.dp, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Bool(%s) = %v, want %v", tt.dp, got, tt.want)
			}
		})
	}
}

// ─── Merge ─────────────────────────────────────────────────────────

func TestSnapshotMerge(t *testing.T) {
	base := Snapshot{"2": true, "5": "standby"}
	changes := Snapshot{"5": "smart", "8": float64(90)}

	merged := base.Merge(changes)

	if got, _ := merged.String("5"); got != "smart" {
		t.Errorf("merged DP 5 = %q, want %q", got, "smart")
	}
	if got, _ := merged.Bool("2"); !got {
		t.Error("merged DP 2 lost base value")
	}
	if !merged.Has("8") {
		t.Error("merged snapshot missing new DP 8")
	}

	// Inputs must be untouched.
	if base.Has("8") {
		t.Error("Merge mutated base snapshot")
	}
	if got, _ := base.String("5"); got != "standby" {
		t.Errorf("Merge mutated base DP 5: %q", got)
	}
}
