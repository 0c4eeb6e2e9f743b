package vacuum

import (
	"fmt"
	"math"
)

// Map rotation modes. Vacuum firmwares disagree about which way the map grid
// is oriented relative to the coordinate system the app reports, so the
// installer picks one of four fixed axis remappings.
const (
	// RotationFlipY maps (x, y) to (x, -y).
	RotationFlipY = 0

	// RotationSwap maps (x, y) to (y, x).
	RotationSwap = 1

	// RotationFlipX maps (x, y) to (-x, y).
	RotationFlipX = 2

	// RotationFlipBoth maps (x, y) to (-x, -y).
	RotationFlipBoth = 3
)

// Transform converts between the relative coordinate frame used by callers
// (typically normalised 0..1 map positions) and the absolute grid coordinates
// the device firmware expects. It is a pure value type: construction
// validates the parameters once and every conversion after that is
// side-effect free.
type Transform struct {
	scale    float64
	originX  float64
	originY  float64
	rotation int
}

// NewTransform builds a Transform from the device's map calibration.
//
// scale is the grid units per relative unit and must be non-zero. origin is
// the relative-frame position of the grid origin. rotation selects one of
// the four axis remappings (Rotation* constants).
func NewTransform(scale float64, origin [2]float64, rotation int) (Transform, error) {
	if scale == 0 {
		return Transform{}, ErrInvalidScale
	}
	if rotation < RotationFlipY || rotation > RotationFlipBoth {
		return Transform{}, fmt.Errorf("%w: got %d", ErrInvalidRotation, rotation)
	}
	return Transform{
		scale:    scale,
		originX:  origin[0],
		originY:  origin[1],
		rotation: rotation,
	}, nil
}

// rotate applies the configured axis remapping.
func (t Transform) rotate(x, y float64) (float64, float64) {
	switch t.rotation {
	case RotationSwap:
		return y, x
	case RotationFlipX:
		return -x, y
	case RotationFlipBoth:
		return -x, -y
	default: // RotationFlipY
		return x, -y
	}
}

// ToAbsolute converts a relative-frame position to integer grid coordinates:
// translate by the origin, scale, rotate, then round half away from zero.
//
// The rounding direction is load-bearing for cleaning targets that land on
// cell boundaries: (0.5, 0.5) under an identity calibration yields (1, -1),
// not (0, 0).
func (t Transform) ToAbsolute(relX, relY float64) (int, int) {
	x := (relX - t.originX) / t.scale
	y := (relY - t.originY) / t.scale
	x, y = t.rotate(x, y)
	return int(math.Round(x)), int(math.Round(y))
}

// ToRelative converts integer grid coordinates back to the relative frame:
// rotate, scale, then translate by the origin. The same axis remapping is
// applied in both directions; for the three flip modes it is its own
// inverse, and for RotationSwap swapping twice restores the original axes.
func (t Transform) ToRelative(absX, absY int) (float64, float64) {
	x, y := t.rotate(float64(absX), float64(absY))
	return x*t.scale + t.originX, y*t.scale + t.originY
}
