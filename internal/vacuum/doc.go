// Package vacuum implements the protocol core for Tuya robot vacuums.
//
// Tuya vacuums expose everything through numbered datapoints: a primary
// status enum, a power flag, optional telemetry DPs, and a base64 command
// channel for structured cleaning commands. This package turns that raw
// surface into a semantic model and back:
//
//	                 raw DP snapshots                semantic status
//	device transport ───────────────► Decoder ─────► State + Attributes
//
//	typed Command ──► Dispatcher ──► DP writes ────► device transport
//
// # Components
//
//   - Transform: map calibration (scale, origin, axis rotation) converting
//     between relative map coordinates and the device's integer grid
//   - Envelope: the base64/JSON structured command format for room, spot,
//     and area cleaning
//   - Decoder: per-device state machine folding DP snapshots into a
//     VacuumState and optional attributes
//   - Dispatcher: per-device command executor writing datapoints through a
//     tuya.Transport
//   - ParseCommand: the validation boundary turning wire-level command
//     names and parameter maps into the closed typed command set
//
// # Device ownership
//
// Decoder and Dispatcher instances each own exactly one physical device.
// The bridge creates the pair when a device is loaded and drops it when
// the device is removed; nothing in this package is shared across devices.
//
// # Thread Safety
//
// Decoder serialises access internally. Dispatcher and Transform are
// stateless between calls and safe for concurrent use.
package vacuum
