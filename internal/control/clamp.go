package control

import "math"

// Limits bounds a mechanism's motion. Upper and Lower are soft position
// limits; Min and Max bound the output magnitude.
type Limits struct {
	Upper float64
	Lower float64
	Min   float64
	Max   float64
}

// Clamp bounds a commanded output against the measured position. Motion
// further past a soft limit is suppressed; everything else is clamped to
// [Min, Max]. Every output path goes through Clamp before reaching hardware.
func Clamp(out, pos float64, lim Limits) float64 {
	if math.IsNaN(out) {
		return 0
	}
	if pos >= lim.Upper && out > 0 {
		return 0
	}
	if pos <= lim.Lower && out < 0 {
		return 0
	}
	return clampRange(out, lim.Min, lim.Max)
}

func clampRange(v, lo, hi float64) float64 {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
