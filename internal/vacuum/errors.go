package vacuum

import "errors"

// Domain errors for the vacuum core package.
var (
	// ErrInvalidScale is returned when a map scale of zero is configured.
	// A zero scale would divide by zero on every coordinate conversion.
	ErrInvalidScale = errors.New("vacuum: map scale must be non-zero")

	// ErrInvalidRotation is returned when the configured map rotation mode
	// is outside the supported range 0-3.
	ErrInvalidRotation = errors.New("vacuum: rotation mode must be 0-3")

	// ErrInvalidOrigin is returned when the configured map origin cannot
	// be parsed as a two-element coordinate.
	ErrInvalidOrigin = errors.New("vacuum: invalid map origin")

	// ErrInvalidConfig is returned when required device options are missing
	// or malformed.
	ErrInvalidConfig = errors.New("vacuum: invalid device configuration")

	// ErrUnsupportedCommand is returned by ParseCommand for command names
	// outside the supported set.
	ErrUnsupportedCommand = errors.New("vacuum: unsupported command")

	// ErrMissingParameter is returned by ParseCommand when a required
	// command parameter is absent or of the wrong type.
	ErrMissingParameter = errors.New("vacuum: missing command parameter")

	// ErrDPNotConfigured is returned when a command needs a datapoint the
	// device configuration does not bind.
	ErrDPNotConfigured = errors.New("vacuum: datapoint not configured")

	// ErrEncodingFailed is returned when a command envelope cannot be
	// serialised.
	ErrEncodingFailed = errors.New("vacuum: envelope encoding failed")
)
