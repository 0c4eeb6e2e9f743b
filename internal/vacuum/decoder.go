package vacuum

import (
	"encoding/base64"
	"encoding/json"
	"sync"

	"github.com/konewka17/localtuya/internal/tuya"
)

// Logger is the minimal logging interface the vacuum core needs. The
// infrastructure logging package satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// nopLogger discards everything. Used until SetLogger is called.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Snapshot of the decoder's view after a Decode call.
type Status struct {
	State      State      `json:"state"`
	Attributes Attributes `json:"attributes"`
}

// positionReport is the wire shape of the base64 position datapoint.
// Coordinates decode as floats to tolerate firmwares that emit "123.0".
type positionReport struct {
	Data struct {
		PosArray [][2]float64 `json:"posArray"`
	} `json:"data"`
}

// Decoder folds raw datapoint snapshots into a semantic vacuum status.
// One Decoder instance owns the state of exactly one physical device; the
// bridge creates it when the device is loaded and drops it when the device
// is removed.
//
// Decoder is safe for concurrent use, though in practice the owning bridge
// serialises calls per device.
type Decoder struct {
	cfg DeviceConfig

	mu     sync.Mutex
	logger Logger
	state  State
	// baseState is the status-value resolution before the fault override.
	// Dock-departure detection compares base states so a fault raised while
	// the vacuum sits on the dock does not read as leaving it.
	baseState State
	attrs     Attributes
	// known is the accumulated full DP view; Decode receives deltas.
	known tuya.Snapshot
	// lastRawPos deduplicates position reports.
	lastRawPos *Position
}

// NewDecoder builds a decoder for one device. The initial state is Unknown
// until the first snapshot arrives.
func NewDecoder(cfg DeviceConfig) *Decoder {
	d := &Decoder{
		cfg:       cfg,
		logger:    nopLogger{},
		state:     StateUnknown,
		baseState: StateUnknown,
		known:     tuya.Snapshot{},
	}
	d.attrs.Modes = append([]string(nil), cfg.Modes...)
	d.attrs.FanSpeeds = append([]string(nil), cfg.FanSpeeds...)
	if cfg.TrackPath {
		d.attrs.Path = []RelativePosition{}
	}
	return d
}

// SetLogger installs a logger. Safe to call at any time.
func (d *Decoder) SetLogger(logger Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if logger != nil {
		d.logger = logger
	}
}

// Status returns a copy of the current decoded status.
func (d *Decoder) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{State: d.state, Attributes: d.attrs.Clone()}
}

// Decode folds a (possibly partial) datapoint snapshot into the device
// status and returns the result. Unknown datapoints are retained but
// ignored; a malformed position blob is logged and skipped without
// affecting the rest of the update.
func (d *Decoder) Decode(changes tuya.Snapshot) Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.known = d.known.Merge(changes)

	previousBase := d.baseState
	d.baseState = d.resolveState()
	d.state = d.applyFaultOverride(d.baseState)
	d.decodeAttributes()

	// Leaving the dock starts a fresh cleaning run: discard stale
	// position history from the previous one. The comparison uses the
	// pre-override states: a fault firing on the dock is not a departure.
	if previousBase == StateDocked && d.baseState != StateDocked {
		d.attrs.Position = nil
		d.attrs.RelativePosition = nil
		d.lastRawPos = nil
		if d.cfg.TrackPath {
			d.attrs.Path = []RelativePosition{}
		}
		d.logger.Info("position history reset", "reason", "left dock")
	}

	// Position decodes only from a delta that actually carries the DP;
	// replaying a stale cached value would fabricate movement.
	if d.cfg.PositionDP != "" && changes.Has(d.cfg.PositionDP) {
		d.decodePosition(changes)
	}

	return Status{State: d.state, Attributes: d.attrs.Clone()}
}

// resolveState maps the primary status value to a semantic state. First
// match wins: idle, docked, returning, paused, otherwise cleaning. The
// fault override is applied separately, after dock-departure detection.
func (d *Decoder) resolveState() State {
	value, err := d.known.String(d.cfg.StatusDP)
	if err != nil {
		return StateUnknown
	}

	for _, s := range d.cfg.IdleStatuses {
		if value == s {
			return StateIdle
		}
	}
	for _, s := range d.cfg.DockedStatuses {
		if value == s {
			return StateDocked
		}
	}
	if value == d.cfg.ReturningStatus {
		return StateReturning
	}
	if value == d.cfg.PausedStatus {
		return StatePaused
	}
	return StateCleaning
}

// applyFaultOverride forces Error when the fault datapoint is bound and
// reports a non-zero code, regardless of the resolved status value.
func (d *Decoder) applyFaultOverride(base State) State {
	if d.cfg.FaultDP != "" {
		if fault, err := d.known.Int(d.cfg.FaultDP); err == nil && fault != 0 {
			return StateError
		}
	}
	return base
}

// decodeAttributes refreshes every attribute whose datapoint is bound and
// currently known. Unbound datapoints leave their fields nil.
func (d *Decoder) decodeAttributes() {
	readInt := func(dp tuya.DPID, dst **int) {
		if dp == "" {
			return
		}
		if v, err := d.known.Int(dp); err == nil {
			*dst = &v
		}
	}
	readString := func(dp tuya.DPID, dst **string) {
		if dp == "" {
			return
		}
		if v, err := d.known.String(dp); err == nil {
			*dst = &v
		}
	}

	readInt(d.cfg.BatteryDP, &d.attrs.BatteryLevel)
	readString(d.cfg.ModeDP, &d.attrs.Mode)
	readString(d.cfg.FanSpeedDP, &d.attrs.FanSpeed)
	readInt(d.cfg.CleanTimeDP, &d.attrs.CleanTime)
	readInt(d.cfg.CleanAreaDP, &d.attrs.CleanArea)
	readString(d.cfg.CleanRecordDP, &d.attrs.CleanRecord)
	readInt(d.cfg.FaultDP, &d.attrs.Fault)
}

// decodePosition parses the base64 position blob. Every failure mode is a
// debug log and an early return: position telemetry is best-effort and must
// never poison the status update.
func (d *Decoder) decodePosition(changes tuya.Snapshot) {
	blob, err := changes.String(d.cfg.PositionDP)
	if err != nil {
		d.logger.Debug("position datapoint unreadable", "error", err)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		d.logger.Debug("position blob is not valid base64", "raw", blob)
		return
	}

	var report positionReport
	if err := json.Unmarshal(raw, &report); err != nil {
		d.logger.Debug("position blob is not valid JSON", "raw", blob)
		return
	}

	// Exactly one point per report; anything else is a frame we do not
	// understand (multi-point frames carry map data, not the robot).
	if len(report.Data.PosArray) != 1 {
		d.logger.Debug("position report has unexpected point count",
			"points", len(report.Data.PosArray))
		return
	}

	pos := Position{X: int(report.Data.PosArray[0][0]), Y: int(report.Data.PosArray[0][1])}
	if d.lastRawPos != nil && *d.lastRawPos == pos {
		return
	}
	d.lastRawPos = &pos
	d.attrs.Position = &pos

	relX, relY := d.cfg.Transform.ToRelative(pos.X, pos.Y)
	rel := RelativePosition{X: relX, Y: relY}
	d.attrs.RelativePosition = &rel
	if d.cfg.TrackPath {
		d.attrs.Path = append(d.attrs.Path, rel)
	}
}
