package control

import (
	"fmt"
	"math"
)

// Config holds the gains, period and limits of a pivot controller. It is
// built once at startup and never modified by the controller.
type Config struct {
	Kp float64
	Ki float64
	Kd float64
	// Period is the control tick in seconds.
	Period float64
	// Upper and Lower are soft limits in encoder rotations.
	Upper float64
	Lower float64
	// OutputMin and OutputMax bound the commanded output.
	OutputMin float64
	OutputMax float64
	// SaneMin and SaneMax bound readings the encoder can physically
	// produce. Anything outside is a sensor fault.
	SaneMin float64
	SaneMax float64
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	switch {
	case !(c.Period > 0):
		return fmt.Errorf("%w: period must be positive, got %f", ErrInvalidConfig, c.Period)
	case c.Kp < 0 || c.Ki < 0 || c.Kd < 0:
		return fmt.Errorf("%w: gains must be non-negative", ErrInvalidConfig)
	case !(c.Upper > c.Lower):
		return fmt.Errorf("%w: upper limit %f must exceed lower limit %f", ErrInvalidConfig, c.Upper, c.Lower)
	case !(c.OutputMax > c.OutputMin) || c.OutputMax < 0 || c.OutputMin > 0:
		return fmt.Errorf("%w: output bounds [%f, %f] must straddle zero", ErrInvalidConfig, c.OutputMin, c.OutputMax)
	case c.OutputMax > 1 || c.OutputMin < -1:
		return fmt.Errorf("%w: output bounds must lie within [-1, 1]", ErrInvalidConfig)
	case c.SaneMin > c.Lower || c.SaneMax < c.Upper:
		return fmt.Errorf("%w: sane envelope [%f, %f] must contain the soft limits", ErrInvalidConfig, c.SaneMin, c.SaneMax)
	}
	return nil
}

// Limits returns the soft limits and output bounds used by Clamp.
func (c Config) Limits() Limits {
	return Limits{Upper: c.Upper, Lower: c.Lower, Min: c.OutputMin, Max: c.OutputMax}
}

// WindupBound is the largest integral magnitude the controller keeps.
// The integral term alone can saturate the output but never exceed it.
// Zero when Ki is zero.
func (c Config) WindupBound() float64 {
	if c.Ki == 0 {
		return 0
	}
	return math.Max(math.Abs(c.OutputMin), math.Abs(c.OutputMax)) / c.Ki
}

// Sane reports whether a reading is inside the physical envelope.
func (c Config) Sane(measured float64) bool {
	return finite(measured) && measured >= c.SaneMin && measured <= c.SaneMax
}

// PIDState is the per-mechanism controller memory. Only Reset clears it.
type PIDState struct {
	Integral  float64
	PrevError float64
	Output    float64
	Setpoint  float64
	// Armed is false until the first good sample, which suppresses the
	// derivative kick on that sample.
	Armed bool
	Fault Fault
}

// Reset returns a disarmed state that keeps the setpoint.
func (s PIDState) Reset() PIDState {
	return PIDState{Setpoint: s.Setpoint}
}

// Output is a pair of motor commands for a mechanism driven from both sides.
type Output struct {
	Left  float64
	Right float64
}

// AngleController drives a pivot joint to a rotation count. The joint has
// a motor on each side facing opposite directions, so the pair is always
// commanded with opposite signs.
type AngleController struct {
	cfg Config
}

func NewAngleController(cfg Config) (*AngleController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AngleController{cfg: cfg}, nil
}

// Config returns the controller's configuration.
func (c *AngleController) Config() Config { return c.cfg }

// Step runs one control tick.
func (c *AngleController) Step(measured, target float64, st PIDState) (PIDState, Output) {
	if !c.cfg.Sane(measured) {
		next := st.Reset()
		next.Fault = FaultSensorOutOfRange
		return next, Output{}
	}

	fault := FaultNone
	if !finite(target) {
		target = st.Setpoint
	}
	if target > c.cfg.Upper || target < c.cfg.Lower {
		target = clampRange(target, c.cfg.Lower, c.cfg.Upper)
		fault = FaultUnreachableTarget
	}

	dt := c.cfg.Period
	err := target - measured

	integral := 0.0
	if c.cfg.Ki != 0 {
		bound := c.cfg.WindupBound()
		integral = clampRange(st.Integral+err*dt, -bound, bound)
	}

	derivative := 0.0
	if st.Armed {
		derivative = (err - st.PrevError) / dt
	}

	raw := c.cfg.Kp*err + c.cfg.Ki*integral + c.cfg.Kd*derivative
	out := Clamp(raw, measured, c.cfg.Limits())

	next := PIDState{
		Integral:  integral,
		PrevError: err,
		Output:    out,
		Setpoint:  target,
		Armed:     true,
		Fault:     fault,
	}
	return next, Output{Left: -out, Right: out}
}

// Manual bounds an operator-commanded speed with the same soft limits the
// PID loop honours.
func (c *AngleController) Manual(measured, speed float64) Output {
	if !c.cfg.Sane(measured) {
		return Output{}
	}
	out := Clamp(speed, measured, c.cfg.Limits())
	return Output{Left: -out, Right: out}
}

// GetParams returns the controller gains for display.
func (c *AngleController) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": c.cfg.Kp,
		"Ki": c.cfg.Ki,
		"Kd": c.cfg.Kd,
	}
}
