package tuya

import (
	"encoding/json"
	"fmt"
	"time"

	dp "github.com/konewka17/localtuya/internal/tuya"
	"github.com/konewka17/localtuya/internal/vacuum"
)

// MQTT message types for communication between consumers and the Tuya bridge.

// CommandMessage is sent to the bridge to execute a vacuum command.
// Topic: localtuya/command/{device_id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Tuya device identifier.
	DeviceID string `json:"device_id"`

	// Command is the command name (e.g., "start", "pause", "clean_room").
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"fan_speed": "high"} for set_fan_speed
	//   {"room": 3} for clean_room
	//   {"x": 0.4, "y": -0.2, "size": 300} for clean_spot
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	// Values: "api", "automation", "mqtt"
	Source string `json:"source"`

	// UserID is the user who triggered the command (if applicable).
	UserID string `json:"user_id,omitempty"`
}

// StatusMessage is the raw datapoint snapshot reported by a device.
// Topic: localtuya/status/{device_id}
//
// Two payload shapes are accepted: the tinytuya convention with a "dps"
// wrapper, and a bare datapoint object.
type StatusMessage struct {
	DPS dp.Snapshot `json:"dps"`
}

// ParseStatusPayload decodes a status payload into a datapoint snapshot.
// A payload with a "dps" key uses the wrapped form; anything else is
// treated as a bare datapoint object.
func ParseStatusPayload(payload []byte) (dp.Snapshot, error) {
	var wrapped StatusMessage
	if err := json.Unmarshal(payload, &wrapped); err == nil && len(wrapped.DPS) > 0 {
		return wrapped.DPS, nil
	}

	var bare dp.Snapshot
	if err := json.Unmarshal(payload, &bare); err != nil {
		return nil, fmt.Errorf("parse status payload: %w", err)
	}
	return bare, nil
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was parsed and written to the device.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the write did not complete within the timeout.
	AckTimeout AckStatus = "timeout"
)

// AckMessage is sent by the bridge to acknowledge a command.
// Topic: localtuya/ack/{device_id}
type AckMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgment was sent (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Tuya device identifier.
	DeviceID string `json:"device_id"`

	// Status indicates the acknowledgment status.
	Status AckStatus `json:"status"`

	// Command echoes the command name for consumers that correlate by name.
	Command string `json:"command"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	// Code is the error code (e.g., "INVALID_COMMAND", "NOT_CONFIGURED").
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage is published by the bridge when a device's semantic state
// changes.
// Topic: localtuya/state/{device_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// DeviceID is the Tuya device identifier.
	DeviceID string `json:"device_id"`

	// Timestamp is when the state was decoded (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// State is the semantic activity state (idle, docked, cleaning, ...).
	State vacuum.State `json:"state"`

	// Attributes carries the decoded readings alongside the state.
	Attributes vacuum.Attributes `json:"attributes"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published by the bridge to report operational status.
// Topic: localtuya/health/bridge
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier.
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// DevicesManaged is the number of devices the bridge runs.
	DevicesManaged int `json:"devices_managed"`

	// Statistics contains operational metrics.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// BridgeStatistics contains operational metrics.
type BridgeStatistics struct {
	// StatusReceived is the total number of datapoint snapshots received.
	StatusReceived uint64 `json:"status_received"`

	// CommandsExecuted is the total number of commands written to devices.
	CommandsExecuted uint64 `json:"commands_executed"`

	// Errors is the total number of errors encountered.
	Errors uint64 `json:"errors"`
}

// JSON marshalling helpers

// MarshalJSON marshals a CommandMessage to JSON.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON unmarshals a CommandMessage from JSON.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Command:   cmd.Command,
	}
}

// NewAckError creates an acknowledgment with error details.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Command:   cmd.Command,
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// NewStateMessage creates a state message from a decoded status.
func NewStateMessage(deviceID string, status vacuum.Status) StateMessage {
	return StateMessage{
		DeviceID:   deviceID,
		Timestamp:  time.Now().UTC(),
		State:      status.State,
		Attributes: status.Attributes,
	}
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats BridgeStatistics, deviceCount int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:         bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		DevicesManaged: deviceCount,
		Statistics:     &stats,
	}
}

// NewLWTMessage creates a Last Will and Testament message for MQTT.
// This message is published by the broker if the bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}
