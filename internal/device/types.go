package device

import (
	"time"

	"github.com/konewka17/localtuya/internal/vacuum"
)

// Device represents one Tuya vacuum managed by the gateway.
// This matches the database schema in migrations/20260815_100000_create_devices.up.sql.
type Device struct {
	// Identity. ID is the Tuya device ID and doubles as the MQTT topic segment.
	ID   string `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Enabled controls whether the bridge subscribes to this device.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Options is the raw datapoint mapping for this device. It is stored
	// verbatim and compiled into a vacuum.DeviceConfig when the bridge
	// starts the device.
	Options vacuum.Options `json:"options" yaml:"options"`

	// State is the last decoded semantic state, persisted so a restart can
	// republish something sensible before the device reports again. Nil
	// until the first decode.
	State *vacuum.Status `json:"state,omitempty" yaml:"-"`

	// LastSeen is when the device last published a datapoint snapshot.
	LastSeen *time.Time `json:"last_seen,omitempty" yaml:"-"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// DeepCopy creates a complete independent copy of the Device.
// The state and timestamp pointers are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.State != nil {
		st := vacuum.Status{
			State:      d.State.State,
			Attributes: d.State.Attributes.Clone(),
		}
		cpy.State = &st
	}
	if d.LastSeen != nil {
		t := *d.LastSeen
		cpy.LastSeen = &t
	}

	// Options contains only value fields, the struct copy above covers it.

	return &cpy
}
