// Package tuya defines the datapoint (DP) layer shared by the vacuum core
// and the transport bridge.
//
// Tuya devices expose all state and control through numbered datapoints.
// Each DP carries one scalar value (bool, integer, string, or enum) and is
// addressed by a small string identifier such as "5" or "127". This package
// holds the common vocabulary for that layer:
//
//   - DPID: a datapoint identifier
//   - Snapshot: an immutable DP->value map as reported by a device
//   - Transport: the single write primitive the command side needs
//
// Snapshot values arrive from JSON decoding and therefore use the loose
// scalar types encoding/json produces (bool, float64, string). The typed
// accessors tolerate those representations so callers do not repeat the
// coercion logic.
//
// # Thread Safety
//
// Snapshots are value maps and must not be mutated after construction.
// Implementations of Transport must be safe for concurrent use.
package tuya
