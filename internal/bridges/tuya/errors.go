package tuya

import "errors"

// Domain errors for the tuya bridge package.
var (
	// ErrDeviceNotManaged is returned when a command targets a device the
	// bridge is not running.
	ErrDeviceNotManaged = errors.New("tuya: device not managed")

	// ErrNotConnected is returned when a publish is attempted while the
	// MQTT client is disconnected.
	ErrNotConnected = errors.New("tuya: not connected")
)
