package agent

import "math"

// AxisCalibration maps one servo's raw position range onto a world axis.
type AxisCalibration struct {
	ID       int     `json:"id"`
	RangeMin int     `json:"range_min"`
	RangeMax int     `json:"range_max"`
	Min      float64 `json:"min"` // world coordinate at RangeMin
	Max      float64 `json:"max"` // world coordinate at RangeMax
	Invert   bool    `json:"invert,omitempty"`
}

// IsCalibrated returns true if both ranges are non-empty.
func (a AxisCalibration) IsCalibrated() bool {
	return a.RangeMax != a.RangeMin && a.Max != a.Min
}

// Contains reports whether coord lies within the calibrated world range.
func (a AxisCalibration) Contains(coord float64) bool {
	lo, hi := a.Min, a.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	return coord >= lo && coord <= hi
}

// ToRaw converts a world coordinate to a raw servo position.
// Coordinates outside the world range are clamped.
func (a AxisCalibration) ToRaw(coord float64) int {
	span := a.Max - a.Min
	if span == 0 {
		return a.RangeMin
	}
	frac := (coord - a.Min) / span
	frac = math.Max(0, math.Min(1, frac))
	if a.Invert {
		frac = 1 - frac
	}
	return a.RangeMin + int(math.Round(frac*float64(a.RangeMax-a.RangeMin)))
}

// FromRaw converts a raw servo position to a world coordinate.
func (a AxisCalibration) FromRaw(raw int) float64 {
	rangeSize := float64(a.RangeMax - a.RangeMin)
	if rangeSize == 0 {
		return a.Min
	}
	frac := float64(raw-a.RangeMin) / rangeSize
	if a.Invert {
		frac = 1 - frac
	}
	return a.Min + frac*(a.Max-a.Min)
}

// DefaultAxis returns a centered calibration for a servo spanning half a turn on each side.
func DefaultAxis(id int) AxisCalibration {
	return AxisCalibration{
		ID:       id,
		RangeMin: 1024,
		RangeMax: 3072,
		Min:      -150,
		Max:      150,
	}
}
