package vacuum

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/konewka17/localtuya/internal/tuya"
)

// Default option values applied when the device definition omits them.
// These match the values the common vacuum firmwares ship with.
const (
	DefaultIdleStatuses    = "standby,sleep"
	DefaultReturningStatus = "docking"
	DefaultDockedStatuses  = "charging,chargecompleted"
	DefaultModes           = "smart,wall_follow,spiral,single"
	DefaultFanSpeeds       = "low,normal,high"
	DefaultPausedStatus    = "paused"
	DefaultReturnMode      = "chargego"
	DefaultStopStatus      = "standby"
)

// Options is the raw per-device option block as stored in the registry or
// written in YAML. String list options are comma-separated; the origin is a
// JSON two-element array in a string, as the device apps export it.
//
// StatusDP and PowerDP are required. Leaving any other DP binding empty
// disables the feature that depends on it.
type Options struct {
	PowerDP         string `yaml:"powergo_dp"          json:"powergo_dp"`
	IdleStatuses    string `yaml:"idle_status_value"   json:"idle_status_value"`
	DockedStatuses  string `yaml:"docked_status_value" json:"docked_status_value"`
	ReturningStatus string `yaml:"returning_status_value" json:"returning_status_value"`
	PausedStatus    string `yaml:"paused_state"        json:"paused_state"`
	StopStatus      string `yaml:"stop_status"         json:"stop_status"`
	ReturnMode      string `yaml:"return_mode"         json:"return_mode"`
	Modes           string `yaml:"modes"               json:"modes"`
	FanSpeeds       string `yaml:"fan_speeds"          json:"fan_speeds"`

	StatusDP      string `yaml:"status_dp"       json:"status_dp"`
	BatteryDP     string `yaml:"battery_dp"      json:"battery_dp"`
	ModeDP        string `yaml:"mode_dp"         json:"mode_dp"`
	FanSpeedDP    string `yaml:"fan_speed_dp"    json:"fan_speed_dp"`
	CleanTimeDP   string `yaml:"clean_time_dp"   json:"clean_time_dp"`
	CleanAreaDP   string `yaml:"clean_area_dp"   json:"clean_area_dp"`
	CleanRecordDP string `yaml:"clean_record_dp" json:"clean_record_dp"`
	LocateDP      string `yaml:"locate_dp"       json:"locate_dp"`
	FaultDP       string `yaml:"fault_dp"        json:"fault_dp"`

	PositionDP string `yaml:"position_base64_dp" json:"position_base64_dp"`

	// PositionScale is a pointer so an absent option (nil, defaults to 1)
	// is distinguishable from an explicit zero, which is a config error.
	PositionScale *float64 `yaml:"position_relative_scale" json:"position_relative_scale"`
	// PositionOrigin is a JSON array in a string, e.g. "[0.5, 0.5]".
	PositionOrigin   string `yaml:"position_relative_origin" json:"position_relative_origin"`
	PositionRotation int    `yaml:"position_axis_rotation"   json:"position_axis_rotation"`

	// TrackPath accumulates every decoded position into the path history.
	// Off by default: only the latest point is kept, which bounds memory
	// on devices that report position several times a second.
	TrackPath bool `yaml:"track_path" json:"track_path"`
}

// DeviceConfig is the compiled, validated form of Options. Build one with
// ParseDeviceConfig; the zero value is not usable.
type DeviceConfig struct {
	StatusDP tuya.DPID
	PowerDP  tuya.DPID

	IdleStatuses    []string
	DockedStatuses  []string
	ReturningStatus string
	PausedStatus    string
	StopStatus      string
	ReturnMode      string
	Modes           []string
	FanSpeeds       []string

	BatteryDP     tuya.DPID
	ModeDP        tuya.DPID
	FanSpeedDP    tuya.DPID
	CleanTimeDP   tuya.DPID
	CleanAreaDP   tuya.DPID
	CleanRecordDP tuya.DPID
	LocateDP      tuya.DPID
	FaultDP       tuya.DPID
	PositionDP    tuya.DPID

	Transform Transform
	TrackPath bool
}

// splitList splits a comma-separated option into trimmed values, dropping
// empties so "a,,b" and "a, b" behave.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseDeviceConfig compiles raw options into a DeviceConfig.
//
// Defaults are applied for the status vocabulary options; DP bindings have
// no defaults. Geometry options are validated here so a zero scale or an
// out-of-range rotation fails at device load time rather than on the first
// position decode.
func ParseDeviceConfig(opts Options) (DeviceConfig, error) {
	if opts.PowerDP == "" {
		return DeviceConfig{}, fmt.Errorf("%w: powergo_dp is required", ErrInvalidConfig)
	}
	if opts.StatusDP == "" {
		return DeviceConfig{}, fmt.Errorf("%w: status_dp is required", ErrInvalidConfig)
	}

	applyDefault := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	applyDefault(&opts.IdleStatuses, DefaultIdleStatuses)
	applyDefault(&opts.DockedStatuses, DefaultDockedStatuses)
	applyDefault(&opts.ReturningStatus, DefaultReturningStatus)
	applyDefault(&opts.PausedStatus, DefaultPausedStatus)
	applyDefault(&opts.StopStatus, DefaultStopStatus)
	applyDefault(&opts.ReturnMode, DefaultReturnMode)
	applyDefault(&opts.Modes, DefaultModes)
	applyDefault(&opts.FanSpeeds, DefaultFanSpeeds)

	scale := 1.0
	if opts.PositionScale != nil {
		// An explicit zero is passed through so NewTransform rejects it.
		scale = *opts.PositionScale
	}

	origin := [2]float64{0, 0}
	if opts.PositionOrigin != "" {
		var raw []float64
		if err := json.Unmarshal([]byte(opts.PositionOrigin), &raw); err != nil {
			return DeviceConfig{}, fmt.Errorf("%w: %q: %w", ErrInvalidOrigin, opts.PositionOrigin, err)
		}
		if len(raw) != 2 {
			return DeviceConfig{}, fmt.Errorf("%w: %q has %d elements, want 2", ErrInvalidOrigin, opts.PositionOrigin, len(raw))
		}
		origin[0], origin[1] = raw[0], raw[1]
	}

	transform, err := NewTransform(scale, origin, opts.PositionRotation)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return DeviceConfig{
		StatusDP:        tuya.DPID(opts.StatusDP),
		PowerDP:         tuya.DPID(opts.PowerDP),
		IdleStatuses:    splitList(opts.IdleStatuses),
		DockedStatuses:  splitList(opts.DockedStatuses),
		ReturningStatus: opts.ReturningStatus,
		PausedStatus:    opts.PausedStatus,
		StopStatus:      opts.StopStatus,
		ReturnMode:      opts.ReturnMode,
		Modes:           splitList(opts.Modes),
		FanSpeeds:       splitList(opts.FanSpeeds),
		BatteryDP:       tuya.DPID(opts.BatteryDP),
		ModeDP:          tuya.DPID(opts.ModeDP),
		FanSpeedDP:      tuya.DPID(opts.FanSpeedDP),
		CleanTimeDP:     tuya.DPID(opts.CleanTimeDP),
		CleanAreaDP:     tuya.DPID(opts.CleanAreaDP),
		CleanRecordDP:   tuya.DPID(opts.CleanRecordDP),
		LocateDP:        tuya.DPID(opts.LocateDP),
		FaultDP:         tuya.DPID(opts.FaultDP),
		PositionDP:      tuya.DPID(opts.PositionDP),
		Transform:       transform,
		TrackPath:       opts.TrackPath,
	}, nil
}

// HasReturnMode reports whether return-to-base is fully wired: the return
// mode value is always defaulted, but the write also needs the mode DP.
func (c DeviceConfig) HasReturnMode() bool {
	return c.ReturnMode != "" && c.ModeDP != ""
}
