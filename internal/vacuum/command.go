package vacuum

import (
	"fmt"
)

// Command names accepted at the parse boundary.
const (
	CmdStart        = "start"
	CmdPause        = "pause"
	CmdStop         = "stop"
	CmdReturnToBase = "return_to_base"
	CmdLocate       = "locate"
	CmdSetFanSpeed  = "set_fan_speed"
	CmdSetMode      = "set_mode"
	CmdCleanRoom    = "clean_room"
	CmdCleanSpot    = "clean_spot"
	CmdCleanArea    = "clean_area"
)

// Command parameter defaults.
const (
	DefaultRoomID   = 4
	DefaultSpotX    = 0.5
	DefaultSpotY    = 0.5
	DefaultSpotSize = 300
)

// Command is a parsed, validated vacuum command. The set is closed: the
// dispatcher switches over these concrete types and ParseCommand rejects
// anything else, so an unsupported request fails loudly at the boundary
// instead of silently doing nothing.
type Command interface {
	// Name returns the wire-level command name.
	Name() string
}

type StartCommand struct{}
type PauseCommand struct{}
type StopCommand struct{}
type ReturnToBaseCommand struct{}
type LocateCommand struct{}

// SetFanSpeedCommand sets the suction level to one of the configured values.
type SetFanSpeedCommand struct {
	Speed string
}

// SetModeCommand sets the cleaning mode datapoint directly.
type SetModeCommand struct {
	Mode string
}

// CleanRoomCommand cleans a saved room segment.
type CleanRoomCommand struct {
	RoomID int
	MapID  int
}

// CleanSpotCommand cleans a square around a relative-frame point.
type CleanSpotCommand struct {
	X     float64
	Y     float64
	Size  float64
	MapID int
}

// CleanAreaCommand cleans an arbitrary polygon. Exactly one of Vertices
// (absolute grid coordinates) or RelativeVertices (to be transformed) is
// set; ParseCommand prefers Vertices when both appear.
type CleanAreaCommand struct {
	Vertices         [][2]float64
	RelativeVertices [][2]float64
	MapID            int
}

func (StartCommand) Name() string        { return CmdStart }
func (PauseCommand) Name() string        { return CmdPause }
func (StopCommand) Name() string         { return CmdStop }
func (ReturnToBaseCommand) Name() string { return CmdReturnToBase }
func (LocateCommand) Name() string       { return CmdLocate }
func (SetFanSpeedCommand) Name() string  { return CmdSetFanSpeed }
func (SetModeCommand) Name() string      { return CmdSetMode }
func (CleanRoomCommand) Name() string    { return CmdCleanRoom }
func (CleanSpotCommand) Name() string    { return CmdCleanSpot }
func (CleanAreaCommand) Name() string    { return CmdCleanArea }

// paramFloat reads a numeric parameter, accepting the scalar types JSON
// decoding produces.
func paramFloat(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	default:
		return 0, fmt.Errorf("%w: %q must be a number, got %T", ErrMissingParameter, key, v)
	}
}

func paramInt(params map[string]any, key string, def int) (int, error) {
	f, err := paramFloat(params, key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func paramString(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingParameter, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrMissingParameter, key, v)
	}
	return s, nil
}

// paramVertices reads a list of [x, y] pairs from a parameter.
func paramVertices(params map[string]any, key string) ([][2]float64, bool, error) {
	v, ok := params[key]
	if !ok {
		return nil, false, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q must be a list of [x, y] pairs", ErrMissingParameter, key)
	}
	out := make([][2]float64, 0, len(list))
	for i, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, false, fmt.Errorf("%w: %q[%d] must be an [x, y] pair", ErrMissingParameter, key, i)
		}
		var vert [2]float64
		for j, c := range pair {
			switch n := c.(type) {
			case float64:
				vert[j] = n
			case int:
				vert[j] = float64(n)
			default:
				return nil, false, fmt.Errorf("%w: %q[%d][%d] must be a number", ErrMissingParameter, key, i, j)
			}
		}
		out = append(out, vert)
	}
	return out, true, nil
}

// ParseCommand validates a wire-level command name and parameter map into a
// typed Command. Unknown names return ErrUnsupportedCommand; missing or
// mistyped required parameters return ErrMissingParameter. Optional
// parameters fall back to the documented defaults.
func ParseCommand(name string, params map[string]any) (Command, error) {
	if params == nil {
		params = map[string]any{}
	}

	switch name {
	case CmdStart:
		return StartCommand{}, nil
	case CmdPause:
		return PauseCommand{}, nil
	case CmdStop:
		return StopCommand{}, nil
	case CmdReturnToBase:
		return ReturnToBaseCommand{}, nil
	case CmdLocate:
		return LocateCommand{}, nil

	case CmdSetFanSpeed:
		speed, err := paramString(params, "fan_speed")
		if err != nil {
			return nil, err
		}
		return SetFanSpeedCommand{Speed: speed}, nil

	case CmdSetMode:
		mode, err := paramString(params, "mode")
		if err != nil {
			return nil, err
		}
		return SetModeCommand{Mode: mode}, nil

	case CmdCleanRoom:
		room, err := paramInt(params, "room", DefaultRoomID)
		if err != nil {
			return nil, err
		}
		mapID, err := paramInt(params, "map_id", DefaultMapID)
		if err != nil {
			return nil, err
		}
		return CleanRoomCommand{RoomID: room, MapID: mapID}, nil

	case CmdCleanSpot:
		x, err := paramFloat(params, "x", DefaultSpotX)
		if err != nil {
			return nil, err
		}
		y, err := paramFloat(params, "y", DefaultSpotY)
		if err != nil {
			return nil, err
		}
		size, err := paramFloat(params, "size", DefaultSpotSize)
		if err != nil {
			return nil, err
		}
		mapID, err := paramInt(params, "map_id", DefaultMapID)
		if err != nil {
			return nil, err
		}
		return CleanSpotCommand{X: x, Y: y, Size: size, MapID: mapID}, nil

	case CmdCleanArea:
		vertices, hasAbs, err := paramVertices(params, "vertices")
		if err != nil {
			return nil, err
		}
		relative, hasRel, err := paramVertices(params, "relative_vertices")
		if err != nil {
			return nil, err
		}
		if !hasAbs && !hasRel {
			return nil, fmt.Errorf("%w: need %q or %q", ErrMissingParameter, "vertices", "relative_vertices")
		}
		mapID, err := paramInt(params, "map_id", DefaultMapID)
		if err != nil {
			return nil, err
		}
		cmd := CleanAreaCommand{MapID: mapID}
		if hasAbs {
			cmd.Vertices = vertices
		} else {
			cmd.RelativeVertices = relative
		}
		return cmd, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCommand, name)
	}
}
