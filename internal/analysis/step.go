package analysis

import (
	"math"

	"github.com/san-kum/mechctl/internal/telemetry"
)

// Response summarizes how a mechanism followed a setpoint change.
type Response struct {
	Start    float64
	Target   float64
	RiseTick int // first tick at 90% of the move, -1 if never reached
	Peak     float64
	// Overshoot is how far past the target the position went, as a fraction
	// of the move.
	Overshoot  float64
	SettleTick int // first tick after which position stays within band, -1 if never
	Final      float64
}

// StepResponse measures the move toward the setpoint in force at tick from.
// band is the settling tolerance in position units.
func StepResponse(series []telemetry.Snapshot, from int, band float64) (Response, bool) {
	if from < 0 || from >= len(series) {
		return Response{}, false
	}
	target := series[from].Setpoint
	if math.IsNaN(target) {
		return Response{}, false
	}
	start := series[from].Position
	if from > 0 {
		start = series[from-1].Position
	}
	move := target - start
	if move == 0 {
		return Response{}, false
	}

	r := Response{Start: start, Target: target, RiseTick: -1, SettleTick: -1, Peak: start}
	dir := math.Copysign(1, move)
	for i := from; i < len(series); i++ {
		pos := series[i].Position
		if math.IsNaN(pos) {
			r.SettleTick = -1
			continue
		}
		if (pos-r.Peak)*dir > 0 {
			r.Peak = pos
		}
		if r.RiseTick < 0 && (pos-start)/move >= 0.9 {
			r.RiseTick = series[i].Tick
		}
		if math.Abs(target-pos) <= band {
			if r.SettleTick < 0 {
				r.SettleTick = series[i].Tick
			}
		} else {
			r.SettleTick = -1
		}
		r.Final = pos
	}
	if over := (r.Peak - target) * dir; over > 0 {
		r.Overshoot = over / math.Abs(move)
	}
	return r, true
}
