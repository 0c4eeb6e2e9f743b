package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/konewka17/localtuya/internal/bridges/tuya"
	"github.com/konewka17/localtuya/internal/device"
	"github.com/konewka17/localtuya/internal/infrastructure/mqtt"
	"github.com/konewka17/localtuya/internal/vacuum"
)

// handleListDevices returns all devices.
//
// Query parameters:
//   - enabled: "true" to return only enabled devices
//   - state: filter by current vacuum state (cleaning, docked, error, ...)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var devices []device.Device
	var err error
	if r.URL.Query().Get("enabled") == "true" {
		devices, err = s.registry.ListEnabledDevices(ctx)
	} else {
		devices, err = s.registry.ListDevices(ctx)
	}
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}

	if stateStr := r.URL.Query().Get("state"); stateStr != "" {
		want := vacuum.State(stateStr)
		filtered := devices[:0]
		for _, d := range devices {
			if d.State != nil && d.State.State == want {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice creates a new device and reloads the bridge mappings.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev device.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.CreateDevice(r.Context(), &dev); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, device.ErrDeviceExists) {
			writeConflict(w, "device already exists")
			return
		}
		writeInternalError(w, "failed to create device")
		return
	}

	s.reloadBridge(r.Context())
	s.auditLog("create", "device", dev.ID, subjectFromContext(r.Context()), map[string]any{"name": dev.Name})

	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice partially updates a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Get existing device
	existing, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	// Decode partial update onto existing device
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.registry.UpdateDevice(r.Context(), existing); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update device")
		return
	}

	s.reloadBridge(r.Context())
	s.auditLog("update", "device", id, subjectFromContext(r.Context()), nil)

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a device by ID.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.DeleteDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}

	s.reloadBridge(r.Context())
	s.auditLog("delete", "device", id, subjectFromContext(r.Context()), nil)

	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceStats returns device registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.registry.GetStats()
	writeJSON(w, http.StatusOK, stats)
}

// handleGetDeviceState returns the current vacuum status of a device.
//
// When the bridge manages the device, the live decoder status is returned.
// Otherwise (bridge down, device disabled) the last persisted status from
// the registry is used.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	state := dev.State
	source := "registry"
	if s.bridge != nil {
		if live, liveErr := s.bridge.DeviceStatus(id); liveErr == nil {
			state = &live
			source = "bridge"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": dev.ID,
		"state":     state,
		"last_seen": dev.LastSeen,
		"source":    source,
	})
}

// DeviceCommand represents a command to send to a vacuum.
type DeviceCommand struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// handleDeviceCommand sends a command to a vacuum.
//
// When the bridge is attached the command is dispatched synchronously and
// the response reflects the outcome. Without a bridge (split deployment)
// the command is published to MQTT and the response is 202 Accepted.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Verify the device exists before touching the bridge
	if _, err := s.registry.GetDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	var cmd DeviceCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if cmd.Command == "" {
		writeBadRequest(w, "command field is required")
		return
	}

	userID := subjectFromContext(r.Context())

	if s.bridge == nil {
		s.publishCommandAsync(w, id, cmd, userID)
		return
	}

	if err := s.bridge.SendCommand(r.Context(), id, cmd.Command, cmd.Parameters); err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.logger.Info("device command executed",
		"device_id", id,
		"command", cmd.Command,
		"user_id", userID,
	)
	s.auditLog("command", "device", id, userID, map[string]any{"command": cmd.Command})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "executed",
		"command": cmd.Command,
	})
}

// publishCommandAsync publishes the command to the bridge command topic and
// returns 202. Used when the API runs without an in-process bridge.
func (s *Server) publishCommandAsync(w http.ResponseWriter, deviceID string, cmd DeviceCommand, userID string) {
	if s.mqtt == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no bridge or MQTT connection available")
		return
	}

	msg := tuya.CommandMessage{
		ID:         generateRequestID(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   deviceID,
		Command:    cmd.Command,
		Parameters: cmd.Parameters,
		Source:     "api",
		UserID:     userID,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		writeInternalError(w, "failed to encode command")
		return
	}

	var topics mqtt.Topics
	if err := s.mqtt.Publish(topics.DeviceCommand(deviceID), payload, 1, false); err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "failed to publish command")
		return
	}

	s.auditLog("command", "device", deviceID, userID, map[string]any{"command": cmd.Command})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"command_id": msg.ID,
		"status":     "accepted",
		"message":    "command published, ack will follow on the device ack topic",
	})
}

// writeCommandError maps bridge/vacuum errors to HTTP responses.
func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vacuum.ErrUnsupportedCommand),
		errors.Is(err, vacuum.ErrMissingParameter):
		writeBadRequest(w, err.Error())
	case errors.Is(err, vacuum.ErrDPNotConfigured):
		writeConflict(w, err.Error())
	case errors.Is(err, tuya.ErrDeviceNotManaged):
		writeConflict(w, "device is not managed by the bridge (disabled or invalid options)")
	case errors.Is(err, tuya.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "MQTT connection is down")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "command timed out")
	default:
		s.logger.Error("device command failed", "error", err)
		writeInternalError(w, "command failed")
	}
}

// reloadBridge refreshes the bridge's device mappings after a registry change.
func (s *Server) reloadBridge(ctx context.Context) {
	if s.bridge != nil {
		s.bridge.ReloadDevices(ctx)
	}
}

// subjectFromContext returns the authenticated user ID, or "" if unauthenticated.
func subjectFromContext(ctx context.Context) string {
	if claims := claimsFromContext(ctx); claims != nil {
		return claims.Subject
	}
	return ""
}

// isValidationError checks whether an error is a device validation error.
// ValidateDevice wraps sentinel errors (ErrInvalidName, ErrInvalidID, and
// vacuum option errors under ErrInvalidDevice) so we check all of them.
func isValidationError(err error) bool {
	return errors.Is(err, device.ErrInvalidDevice) ||
		errors.Is(err, device.ErrInvalidName) ||
		errors.Is(err, device.ErrInvalidID)
}
