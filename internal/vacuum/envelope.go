package vacuum

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Structured command protocol constants. The numbers are fixed by the device
// firmware; they are opcode identifiers, not tunables.
const (
	// infoTypeEnvelope is the outer envelope opcode.
	infoTypeEnvelope = 30000

	// infoTypeCleanTarget declares what to clean (rooms or areas).
	infoTypeCleanTarget = 21023

	// infoTypeCleanMode triggers the declared cleaning run.
	infoTypeCleanMode = 21005

	// cleanIDAdHoc marks an ad-hoc (non-saved) cleaning target.
	cleanIDAdHoc = -3

	// extraAreaID is the fixed identifier firmwares expect on ad-hoc areas.
	extraAreaID = 100

	// cleanModeReappoint is the mode string that starts the targeted run.
	cleanModeReappoint = "reAppointClean"
)

// DefaultMapID is the map identifier used when a command does not name one.
const DefaultMapID = 1695662532

// Wire shapes for the structured command envelope. Field names and order
// are part of the device protocol; do not rename.

type envelopeInfo struct {
	TS     int64  `json:"ts"`
	UserID string `json:"userId"`
}

type extraArea struct {
	Active string `json:"active"`
	ID     int    `json:"id"`
	Mode   string `json:"mode"`
	Name   string `json:"name"`
	Tag    string `json:"tag"`
	// Vertexs holds grid coordinates. Float: odd spot sizes produce
	// half-cell corners. The misspelling is the device's, not ours.
	Vertexs [][2]float64 `json:"vertexs"`
}

type cleanTargetData struct {
	CleanID    []int       `json:"cleanId"`
	ExtraAreas []extraArea `json:"extraAreas"`
	MapID      int         `json:"mapId"`
	SegmentID  []int       `json:"segmentId"`
}

type cleanModeData struct {
	Mode string `json:"mode"`
}

type subCommand struct {
	Data     any `json:"data"`
	InfoType int `json:"infoType"`
}

type envelopeData struct {
	Cmds     []subCommand `json:"cmds"`
	MainCmds []int        `json:"mainCmds"`
}

// Envelope is a structured command for the vacuum's base64 command
// datapoint. Build one with NewAreaEnvelope or NewRoomEnvelope and serialise
// it with Encode; there is no decode path, the device never echoes these.
type Envelope struct {
	DInfo    envelopeInfo `json:"dInfo"`
	Data     envelopeData `json:"data"`
	InfoType int          `json:"infoType"`
	Message  string       `json:"message"`
}

// newEnvelope wraps a clean target in the fixed two-command sequence:
// declare the target, then trigger a reAppointClean run.
func newEnvelope(target cleanTargetData, now time.Time) Envelope {
	return Envelope{
		DInfo: envelopeInfo{
			TS:     now.UnixMilli(),
			UserID: "0",
		},
		Data: envelopeData{
			Cmds: []subCommand{
				{Data: target, InfoType: infoTypeCleanTarget},
				{Data: cleanModeData{Mode: cleanModeReappoint}, InfoType: infoTypeCleanMode},
			},
			MainCmds: []int{infoTypeCleanMode},
		},
		InfoType: infoTypeEnvelope,
		Message:  "ok",
	}
}

// NewAreaEnvelope builds a command that cleans the polygon described by
// vertices, given in absolute grid coordinates.
func NewAreaEnvelope(vertices [][2]float64, mapID int, now time.Time) Envelope {
	if vertices == nil {
		vertices = [][2]float64{}
	}
	return newEnvelope(cleanTargetData{
		CleanID: []int{cleanIDAdHoc},
		ExtraAreas: []extraArea{{
			Active:  "depth",
			ID:      extraAreaID,
			Mode:    "point",
			Name:    "aa",
			Tag:     "room",
			Vertexs: vertices,
		}},
		MapID:     mapID,
		SegmentID: []int{},
	}, now)
}

// NewRoomEnvelope builds a command that cleans a saved room segment.
func NewRoomEnvelope(roomID, mapID int, now time.Time) Envelope {
	return newEnvelope(cleanTargetData{
		CleanID:    []int{cleanIDAdHoc},
		ExtraAreas: []extraArea{},
		MapID:      mapID,
		SegmentID:  []int{roomID},
	}, now)
}

// Encode serialises the envelope as the device expects it: compact JSON,
// base64 encoded.
func (e Envelope) Encode() (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
