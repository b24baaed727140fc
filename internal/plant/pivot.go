package plant

import "math"

// Pivot is a joint driven by two facing motors on a shared shaft. The right
// motor's encoder reports absolute rotations. Motors fighting each other
// (same-sign commands) produce no motion and show up as Skew.
type Pivot struct {
	Left  *Motor
	Right *Motor

	// FreeSpeed is rotations per second at full output.
	FreeSpeed float64
	// Tau is the velocity time constant in seconds.
	Tau float64
	// Min and Max are the hard stops.
	Min float64
	Max float64

	x        State // position, velocity
	override *float64
	maxSkew  float64
}

func NewPivot(start, freeSpeed, tau, min, max float64) *Pivot {
	return &Pivot{
		Left:      NewMotor(false),
		Right:     NewMotor(false),
		FreeSpeed: freeSpeed,
		Tau:       tau,
		Min:       min,
		Max:       max,
		x:         State{start, 0},
	}
}

func (p *Pivot) drive() float64 {
	return (p.Right.Value() - p.Left.Value()) / 2
}

func (p *Pivot) Derivative(x State, u Control) State {
	if p.Tau <= 0 {
		return State{u[0] * p.FreeSpeed, 0}
	}
	return State{x[1], (u[0]*p.FreeSpeed - x[1]) / p.Tau}
}

// Advance integrates the joint over dt.
func (p *Pivot) Advance(dt float64) {
	skew := math.Abs(p.Right.Value() + p.Left.Value())
	if skew > p.maxSkew {
		p.maxSkew = skew
	}

	p.x = substep(p, p.x, Control{p.drive()}, dt, p.Tau)
	if p.x[0] > p.Max {
		p.x[0], p.x[1] = p.Max, 0
	}
	if p.x[0] < p.Min {
		p.x[0], p.x[1] = p.Min, 0
	}
}

// Read returns the encoder position in rotations.
func (p *Pivot) Read() float64 {
	if p.override != nil {
		return *p.override
	}
	return p.x[0]
}

// Position is the true shaft position regardless of encoder faults.
func (p *Pivot) Position() float64 { return p.x[0] }

// FailEncoder makes Read return v until RestoreEncoder.
func (p *Pivot) FailEncoder(v float64) { p.override = &v }

func (p *Pivot) RestoreEncoder() { p.override = nil }

// MaxSkew is the largest |left+right| seen, zero when the pair was always
// mirrored.
func (p *Pivot) MaxSkew() float64 { return p.maxSkew }
