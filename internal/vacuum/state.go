package vacuum

// State is the semantic vacuum activity state derived from raw datapoints.
type State string

// Semantic states, in resolution priority order. Error is set out-of-band by
// a non-zero fault datapoint and overrides whatever the status value says.
const (
	StateUnknown   State = "unknown"
	StateIdle      State = "idle"
	StateDocked    State = "docked"
	StateReturning State = "returning"
	StatePaused    State = "paused"
	StateCleaning  State = "cleaning"
	StateError     State = "error"
)

// Position is a raw device grid coordinate pair.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RelativePosition is a position mapped into the relative (map) frame.
type RelativePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Attributes carries the optional readings decoded alongside the state.
// A nil field means the corresponding datapoint is not bound in the device
// configuration or has not been reported yet; zero values are meaningful
// (fault 0 is "no fault") and are never used to signal absence.
type Attributes struct {
	BatteryLevel *int    `json:"battery_level,omitempty"`
	Mode         *string `json:"mode,omitempty"`
	FanSpeed     *string `json:"fan_speed,omitempty"`
	CleanTime    *int    `json:"clean_time,omitempty"`
	CleanArea    *int    `json:"clean_area,omitempty"`
	CleanRecord  *string `json:"clean_record,omitempty"`
	Fault        *int    `json:"fault,omitempty"`

	Position         *Position          `json:"position,omitempty"`
	RelativePosition *RelativePosition  `json:"relative_position,omitempty"`
	Path             []RelativePosition `json:"path,omitempty"`

	// Modes and FanSpeeds are the configured vocabularies, echoed so
	// consumers can build selection UIs without a second lookup.
	Modes     []string `json:"modes,omitempty"`
	FanSpeeds []string `json:"fan_speeds,omitempty"`
}

// Clone returns a deep copy so callers can hold the result across later
// Decode calls without aliasing the decoder's internal state.
func (a Attributes) Clone() Attributes {
	out := a
	clone := func(p *int) *int {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	cloneStr := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	out.BatteryLevel = clone(a.BatteryLevel)
	out.Mode = cloneStr(a.Mode)
	out.FanSpeed = cloneStr(a.FanSpeed)
	out.CleanTime = clone(a.CleanTime)
	out.CleanArea = clone(a.CleanArea)
	out.CleanRecord = cloneStr(a.CleanRecord)
	out.Fault = clone(a.Fault)
	if a.Position != nil {
		p := *a.Position
		out.Position = &p
	}
	if a.RelativePosition != nil {
		p := *a.RelativePosition
		out.RelativePosition = &p
	}
	if a.Path != nil {
		out.Path = append([]RelativePosition(nil), a.Path...)
	}
	if a.Modes != nil {
		out.Modes = append([]string(nil), a.Modes...)
	}
	if a.FanSpeeds != nil {
		out.FanSpeeds = append([]string(nil), a.FanSpeeds...)
	}
	return out
}
