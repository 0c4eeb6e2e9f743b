package device

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/konewka17/localtuya/internal/vacuum"
)

// Validation constants.
const (
	maxNameLength = 100
	maxIDLength   = 64
	idPattern     = `^[a-zA-Z0-9][a-zA-Z0-9_-]*$`
)

var idRegex = regexp.MustCompile(idPattern)

// ValidateDevice performs full validation on a device.
// Returns an error describing the first validation failure found.
// The options are compiled through vacuum.ParseDeviceConfig so a device
// that passes validation is guaranteed to start cleanly in the bridge.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateID(d.ID); err != nil {
		return err
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	if _, err := vacuum.ParseDeviceConfig(d.Options); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDevice, err)
	}

	return nil
}

// ValidateID checks that a device ID is present and well-formed.
// Tuya device IDs are alphanumeric; UUIDs from GenerateID also pass.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidID, maxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: id must be alphanumeric with hyphens or underscores", ErrInvalidID)
	}
	return nil
}

// ValidateName checks that a device name is present and within limits.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateID generates a new unique device identifier.
// Used when a device is created through the API without a Tuya device ID.
func GenerateID() string {
	return uuid.New().String()
}
