package tuya

import (
	"context"
	"fmt"
	"strconv"
)

// DPID identifies a single Tuya datapoint (e.g. "5", "101", "127").
type DPID string

// StructuredCommandDP is the datapoint that accepts base64-encoded structured
// command envelopes on vacuum devices.
const StructuredCommandDP DPID = "127"

// Snapshot is a point-in-time view of device datapoints, keyed by DP
// identifier. A snapshot may be partial: devices report only the datapoints
// that changed. Values carry the scalar types produced by JSON decoding.
//
// Snapshots must not be mutated after construction.
type Snapshot map[DPID]any

// Has reports whether the datapoint is present in the snapshot.
func (s Snapshot) Has(dp DPID) bool {
	_, ok := s[dp]
	return ok
}

// String returns the datapoint value rendered as a string.
//
// Numeric values are formatted the way Tuya status payloads show them, so a
// DP reported as the number 3 compares equal to the configured string "3".
func (s Snapshot) String(dp DPID) (string, error) {
	v, ok := s[dp]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDPNotPresent, dp)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	default:
		return "", fmt.Errorf("%w: %s is %T", ErrDPType, dp, v)
	}
}

// Int returns the datapoint value as an integer. String values that parse as
// integers are accepted.
func (s Snapshot) Int(dp DPID) (int, error) {
	v, ok := s[dp]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrDPNotPresent, dp)
	}
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q: %w", ErrDPType, dp, t, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrDPType, dp, v)
	}
}

// Bool returns the datapoint value as a boolean. The strings "true" and
// "false" are accepted.
func (s Snapshot) Bool(dp DPID) (bool, error) {
	v, ok := s[dp]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrDPNotPresent, dp)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("%w: %s %q: %w", ErrDPType, dp, t, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: %s is %T", ErrDPType, dp, v)
	}
}

// Merge returns a new snapshot containing s overlaid with changes. Neither
// input is modified.
func (s Snapshot) Merge(changes Snapshot) Snapshot {
	out := make(Snapshot, len(s)+len(changes))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range changes {
		out[k] = v
	}
	return out
}

// Transport delivers datapoint writes to a physical device. The bridge
// provides an MQTT-backed implementation; tests provide fakes.
type Transport interface {
	// SetDP writes a single datapoint value to the device. The value must
	// be a JSON-encodable scalar (bool, number, or string).
	SetDP(ctx context.Context, value any, dp DPID) error
}
