package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceMetric writes a single device measurement to InfluxDB.
//
// This is the primary method for recording device telemetry data.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Unique identifier for the device (e.g., "vacuum-lounge")
//   - measurement: The metric name (e.g., "battery_percent", "clean_time_min")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteDeviceMetric("vacuum-lounge", "battery_percent", 87)
//	client.WriteDeviceMetric("vacuum-lounge", "clean_area_m2", 42)
func (c *Client) WriteDeviceMetric(deviceID string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_metrics",
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteVacuumState writes the semantic activity state as a tagged event.
//
// State is a tag, so dashboards can group and count transitions cheaply.
//
// Parameters:
//   - deviceID: Device identifier
//   - state: Semantic state string (idle, docked, cleaning, ...)
func (c *Client) WriteVacuumState(deviceID string, state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"vacuum_state",
		map[string]string{
			"device_id": deviceID,
			"state":     state,
		},
		map[string]interface{}{
			"value": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteVacuumPosition writes a decoded robot position.
//
// Both the raw grid coordinates and the relative map coordinates are
// recorded so either frame can be plotted.
//
// Parameters:
//   - deviceID: Device identifier
//   - x, y: Raw grid coordinates
//   - relX, relY: Relative map coordinates
func (c *Client) WriteVacuumPosition(deviceID string, x, y int, relX, relY float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"vacuum_position",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"x":     x,
			"y":     y,
			"rel_x": relX,
			"rel_y": relY,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "gateway-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
