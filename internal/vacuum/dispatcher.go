package vacuum

import (
	"context"
	"fmt"
	"time"

	"github.com/konewka17/localtuya/internal/tuya"
)

// Dispatcher translates typed commands into datapoint writes for one
// device. Like the Decoder, one instance is owned per physical device and
// holds no cross-device state.
//
// The dispatcher never retries: transport errors propagate to the caller,
// which decides whether to ack, retry, or surface them.
type Dispatcher struct {
	cfg       DeviceConfig
	transport tuya.Transport
	logger    Logger
	now       func() time.Time
}

// NewDispatcher builds a dispatcher for one device.
func NewDispatcher(cfg DeviceConfig, transport tuya.Transport) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		transport: transport,
		logger:    nopLogger{},
		now:       time.Now,
	}
}

// SetLogger installs a logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Dispatch executes a parsed command against the device. Commands that
// target an unbound datapoint return ErrDPNotConfigured, with one
// historical exception: return-to-base on a device without a mode
// datapoint logs an error and reports success, because vacuums configured
// that way have always treated the button as a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case StartCommand:
		return d.transport.SetDP(ctx, true, d.cfg.PowerDP)

	case PauseCommand:
		return d.transport.SetDP(ctx, false, d.cfg.PowerDP)

	case StopCommand:
		// Stop behaves as pause: the firmware has no separate stop
		// primitive, clearing the power flag halts the run in place.
		return d.transport.SetDP(ctx, false, d.cfg.PowerDP)

	case ReturnToBaseCommand:
		if !d.cfg.HasReturnMode() {
			d.logger.Error("return to base requested but no mode datapoint is configured")
			return nil
		}
		return d.transport.SetDP(ctx, d.cfg.ReturnMode, d.cfg.ModeDP)

	case LocateCommand:
		if d.cfg.LocateDP == "" {
			return fmt.Errorf("%w: locate", ErrDPNotConfigured)
		}
		// An empty-string write triggers the locator chime.
		return d.transport.SetDP(ctx, "", d.cfg.LocateDP)

	case SetFanSpeedCommand:
		if d.cfg.FanSpeedDP == "" {
			return fmt.Errorf("%w: fan speed", ErrDPNotConfigured)
		}
		return d.transport.SetDP(ctx, c.Speed, d.cfg.FanSpeedDP)

	case SetModeCommand:
		if d.cfg.ModeDP == "" {
			return fmt.Errorf("%w: mode", ErrDPNotConfigured)
		}
		return d.transport.SetDP(ctx, c.Mode, d.cfg.ModeDP)

	case CleanRoomCommand:
		env := NewRoomEnvelope(c.RoomID, c.MapID, d.now())
		return d.writeEnvelope(ctx, env)

	case CleanSpotCommand:
		absX, absY := d.cfg.Transform.ToAbsolute(c.X, c.Y)
		env := NewAreaEnvelope(spotSquare(absX, absY, c.Size), c.MapID, d.now())
		return d.writeEnvelope(ctx, env)

	case CleanAreaCommand:
		vertices := c.Vertices
		if vertices == nil {
			vertices = make([][2]float64, 0, len(c.RelativeVertices))
			for _, v := range c.RelativeVertices {
				absX, absY := d.cfg.Transform.ToAbsolute(v[0], v[1])
				vertices = append(vertices, [2]float64{float64(absX), float64(absY)})
			}
		}
		env := NewAreaEnvelope(vertices, c.MapID, d.now())
		return d.writeEnvelope(ctx, env)

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedCommand, cmd)
	}
}

// writeEnvelope serialises a structured command and writes it to the
// base64 command datapoint.
func (d *Dispatcher) writeEnvelope(ctx context.Context, env Envelope) error {
	encoded, err := env.Encode()
	if err != nil {
		return err
	}
	d.logger.Debug("structured command encoded", "bytes", len(encoded))
	return d.transport.SetDP(ctx, encoded, tuya.StructuredCommandDP)
}

// spotSquare builds the axis-aligned square of the given edge length
// centred on a grid cell, corners ordered counter-clockwise from the
// bottom-left.
func spotSquare(x, y int, size float64) [][2]float64 {
	fx, fy := float64(x), float64(y)
	half := size / 2
	return [][2]float64{
		{fx - half, fy - half},
		{fx - half, fy + half},
		{fx + half, fy + half},
		{fx + half, fy - half},
	}
}
