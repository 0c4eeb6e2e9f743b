package tuya

import "errors"

// Domain errors for the datapoint layer.
var (
	// ErrDPNotPresent is returned by snapshot accessors when the requested
	// datapoint is absent from the snapshot.
	ErrDPNotPresent = errors.New("tuya: datapoint not present")

	// ErrDPType is returned when a datapoint value cannot be coerced to the
	// requested Go type.
	ErrDPType = errors.New("tuya: datapoint type mismatch")

	// ErrWriteFailed is returned by Transport implementations when a
	// datapoint write cannot be delivered to the device.
	ErrWriteFailed = errors.New("tuya: datapoint write failed")
)
