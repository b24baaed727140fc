package control

import (
	"fmt"
	"math"
)

// ElevationPhase is the elevation state machine's phase.
type ElevationPhase int

const (
	ElevationIdle ElevationPhase = iota
	RaisingToTarget
	LoweringToTarget
	HoldingAtLimit
)

func (p ElevationPhase) String() string {
	switch p {
	case RaisingToTarget:
		return "raising"
	case LoweringToTarget:
		return "lowering"
	case HoldingAtLimit:
		return "holding"
	default:
		return "idle"
	}
}

// ElevationConfig bounds the actuator travel. Positions are fractions of
// full stroke.
type ElevationConfig struct {
	// UpperTravel caps forward motion regardless of target.
	UpperTravel float64
	// LowerTravel caps reverse motion regardless of target.
	LowerTravel float64
	// Epsilon is the dead band around the target.
	Epsilon float64
	// Speed is the bang-bang output magnitude.
	Speed float64
	// Tolerance is how far outside [0, 1] a reading may drift before it is
	// treated as a sensor fault.
	Tolerance float64
}

func (c ElevationConfig) Validate() error {
	switch {
	case c.LowerTravel < 0 || c.UpperTravel > 1 || !(c.UpperTravel > c.LowerTravel):
		return fmt.Errorf("%w: travel bounds [%f, %f] must be ordered within [0, 1]", ErrInvalidConfig, c.LowerTravel, c.UpperTravel)
	case c.Epsilon < 0:
		return fmt.Errorf("%w: epsilon must be non-negative", ErrInvalidConfig)
	case !(c.Speed > 0) || c.Speed > 1:
		return fmt.Errorf("%w: speed must be in (0, 1], got %f", ErrInvalidConfig, c.Speed)
	case c.Tolerance < 0:
		return fmt.Errorf("%w: tolerance must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// ElevationState is owned by one ElevationController and advanced once per
// tick.
type ElevationState struct {
	Phase        ElevationPhase
	Target       float64
	LastPosition float64
	Fault        Fault
}

// ElevationController moves a pair of ganged linear actuators toward a
// target fraction using full-authority on/off control. Both actuators always
// receive the same command.
type ElevationController struct {
	cfg ElevationConfig
}

func NewElevationController(cfg ElevationConfig) (*ElevationController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ElevationController{cfg: cfg}, nil
}

// Config returns the controller's configuration.
func (c *ElevationController) Config() ElevationConfig { return c.cfg }

func (c *ElevationController) sane(measured float64) bool {
	return finite(measured) && measured >= -c.cfg.Tolerance && measured <= 1+c.cfg.Tolerance
}

// Request starts a move toward target. A target already within Epsilon
// leaves the controller idle. A target beyond a travel bound that has
// already been reached holds at the limit.
func (c *ElevationController) Request(target, measured float64, st ElevationState) ElevationState {
	if !c.sane(measured) {
		return ElevationState{Phase: HoldingAtLimit, Target: st.Target, LastPosition: st.LastPosition, Fault: FaultSensorOutOfRange}
	}

	fault := FaultNone
	if !finite(target) {
		target = measured
	}
	if target > 1 || target < 0 {
		target = clampRange(target, 0, 1)
		fault = FaultUnreachableTarget
	}

	next := ElevationState{Target: target, LastPosition: measured, Fault: fault}
	switch {
	case target > measured+c.cfg.Epsilon:
		if measured >= c.cfg.UpperTravel {
			next.Phase = HoldingAtLimit
		} else {
			next.Phase = RaisingToTarget
		}
	case target < measured-c.cfg.Epsilon:
		if measured <= c.cfg.LowerTravel {
			next.Phase = HoldingAtLimit
		} else {
			next.Phase = LoweringToTarget
		}
	default:
		next.Phase = ElevationIdle
	}
	return next
}

// Step advances the state machine by one tick.
func (c *ElevationController) Step(measured float64, st ElevationState) (ElevationState, Output) {
	if !c.sane(measured) {
		st.Phase = HoldingAtLimit
		st.Fault = FaultSensorOutOfRange
		return st, Output{}
	}
	st.LastPosition = measured
	if st.Fault == FaultSensorOutOfRange {
		st.Fault = FaultNone
	}

	out := 0.0
	switch st.Phase {
	case RaisingToTarget:
		switch {
		case measured >= c.cfg.UpperTravel:
			st.Phase = HoldingAtLimit
		case measured < st.Target:
			out = c.cfg.Speed
		default:
			st.Phase = ElevationIdle
		}
	case LoweringToTarget:
		switch {
		case measured <= c.cfg.LowerTravel:
			st.Phase = HoldingAtLimit
		case measured > st.Target:
			out = -c.cfg.Speed
		default:
			st.Phase = ElevationIdle
		}
	}
	return st, Output{Left: out, Right: out}
}

// StepToward requests target when the controller is at rest or the target
// changed, then steps.
func (c *ElevationController) StepToward(measured, target float64, st ElevationState) (ElevationState, Output) {
	if st.Phase == ElevationIdle || st.Phase == HoldingAtLimit || target != st.Target {
		st = c.Request(target, measured, st)
	}
	return c.Step(measured, st)
}

// Jog returns the output for manual raise (dir > 0) or lower (dir < 0). It
// honours the same travel bounds as Step.
func (c *ElevationController) Jog(measured, dir float64) Output {
	if !c.sane(measured) {
		return Output{}
	}
	out := 0.0
	switch {
	case dir > 0 && measured < c.cfg.UpperTravel:
		out = c.cfg.Speed
	case dir < 0 && measured > c.cfg.LowerTravel:
		out = -c.cfg.Speed
	}
	return Output{Left: out, Right: out}
}

// Cancel stops any move. Safe in every phase.
func (c *ElevationController) Cancel(st ElevationState) ElevationState {
	return ElevationState{Phase: ElevationIdle, Target: st.LastPosition, LastPosition: st.LastPosition}
}

// Distance is how far the last observed position is from the target.
func (s ElevationState) Distance() float64 {
	return math.Abs(s.Target - s.LastPosition)
}
