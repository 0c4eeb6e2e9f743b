package influxdb

import "errors"

// Sentinel errors for the telemetry client. Callers match with errors.Is;
// asynchronous write failures surface through the batching client's error
// callback instead.
var (
	// ErrDisabled means InfluxDB is turned off in the configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed means the initial ping or health check failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected means an operation ran before Connect succeeded.
	ErrNotConnected = errors.New("influxdb: not connected")
)
