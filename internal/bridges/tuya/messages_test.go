package tuya

import (
	"encoding/json"
	"testing"
	"time"

	dp "github.com/konewka17/localtuya/internal/tuya"
	"github.com/konewka17/localtuya/internal/vacuum"
)

// ─── Status payload parsing ───

func TestParseStatusPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantDP  string
		wantVal string
		wantErr bool
	}{
		{
			name:    "wrapped dps form",
			payload: `{"dps":{"5":"cleaning"}}`,
			wantDP:  "5",
			wantVal: "cleaning",
		},
		{
			name:    "bare form",
			payload: `{"5":"docked"}`,
			wantDP:  "5",
			wantVal: "docked",
		},
		{
			name:    "not json",
			payload: `hello`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseStatusPayload([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Error("ParseStatusPayload() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatusPayload() error = %v", err)
			}
			got, err := snap.String(dp.DPID(tt.wantDP))
			if err != nil {
				t.Fatalf("String(%s) error = %v", tt.wantDP, err)
			}
			if got != tt.wantVal {
				t.Errorf("dp %s = %q, want %q", tt.wantDP, got, tt.wantVal)
			}
		})
	}
}

// ─── Command message round-trip ───

func TestCommandMessage_RoundTrip(t *testing.T) {
	original := CommandMessage{
		ID:         "cmd-42",
		Timestamp:  time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		DeviceID:   "bf001",
		Command:    "clean_spot",
		Parameters: map[string]any{"x": 0.4, "y": -0.2},
		Source:     "api",
	}

	data, err := json.Marshal(&original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded CommandMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.ID != original.ID || decoded.Command != original.Command {
		t.Errorf("round trip lost identity: %+v", decoded)
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("timestamp = %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.Parameters["x"] != 0.4 {
		t.Errorf("parameters lost: %+v", decoded.Parameters)
	}
}

func TestCommandMessage_UnmarshalBadTimestamp(t *testing.T) {
	var msg CommandMessage
	err := json.Unmarshal([]byte(`{"id":"c","timestamp":"yesterday"}`), &msg)
	if err == nil {
		t.Error("Unmarshal() error = nil for bad timestamp")
	}
}

// ─── Ack construction ───

func TestNewAckError_TimeoutStatus(t *testing.T) {
	cmd := CommandMessage{ID: "cmd-1", DeviceID: "bf001", Command: "start"}

	ack := NewAckError(cmd, ErrCodeTimeout, "write timed out")
	if ack.Status != AckTimeout {
		t.Errorf("Status = %q, want timeout", ack.Status)
	}

	ack = NewAckError(cmd, ErrCodeInvalidCommand, "nope")
	if ack.Status != AckFailed {
		t.Errorf("Status = %q, want failed", ack.Status)
	}
	if ack.Command != "start" {
		t.Errorf("Command = %q, want start", ack.Command)
	}
}

// ─── State message ───

func TestNewStateMessage(t *testing.T) {
	battery := 42
	status := vacuum.Status{
		State:      vacuum.StateCleaning,
		Attributes: vacuum.Attributes{BatteryLevel: &battery},
	}

	msg := NewStateMessage("bf001", status)
	if msg.DeviceID != "bf001" {
		t.Errorf("DeviceID = %q", msg.DeviceID)
	}
	if msg.State != vacuum.StateCleaning {
		t.Errorf("State = %q, want cleaning", msg.State)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["state"] != "cleaning" {
		t.Errorf("wire state = %v, want cleaning", decoded["state"])
	}
}

// ─── LWT ───

func TestNewLWTMessage(t *testing.T) {
	msg := NewLWTMessage("tuya-bridge-01")
	if msg.Status != HealthOffline {
		t.Errorf("Status = %q, want offline", msg.Status)
	}
	if msg.Reason != "unexpected_disconnect" {
		t.Errorf("Reason = %q", msg.Reason)
	}
}
