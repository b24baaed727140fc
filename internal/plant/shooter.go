package plant

// Flywheel is the shooter's pair of wheel motors spinning a shared drum.
type Flywheel struct {
	A *Motor
	B *Motor
	// FreeSpeed is rotations per second at full output.
	FreeSpeed float64
	Tau       float64

	x State
}

func NewFlywheel(freeSpeed, tau float64) *Flywheel {
	return &Flywheel{
		A:         NewMotor(false),
		B:         NewMotor(false),
		FreeSpeed: freeSpeed,
		Tau:       tau,
		x:         State{0},
	}
}

func (f *Flywheel) output() float64 {
	return (f.A.Value() + f.B.Value()) / 2
}

func (f *Flywheel) Derivative(x State, u Control) State {
	if f.Tau <= 0 {
		return State{0}
	}
	return State{(u[0]*f.FreeSpeed - x[0]) / f.Tau}
}

func (f *Flywheel) Advance(dt float64) {
	if f.Tau <= 0 {
		f.x[0] = f.output() * f.FreeSpeed
		return
	}
	f.x = substep(f, f.x, Control{f.output()}, dt, f.Tau)
}

// Speed is the drum speed in rotations per second.
func (f *Flywheel) Speed() float64 { return f.x[0] }

// NoteFeed models a note pulled through the shooter by the flywheel. The
// beam break sits Threshold rotations into the path and stays blocked for
// Length rotations; past that the note has left the robot.
type NoteFeed struct {
	Wheel     *Flywheel
	Threshold float64
	Length    float64
	// Stuck keeps the note from ever reaching the beam.
	Stuck bool

	present bool
	travel  float64
	fired   int
}

func NewNoteFeed(wheel *Flywheel, threshold, length float64) *NoteFeed {
	return &NoteFeed{Wheel: wheel, Threshold: threshold, Length: length, present: true}
}

func (n *NoteFeed) Advance(dt float64) {
	if !n.present || n.Stuck {
		return
	}
	n.travel += n.Wheel.Speed() * dt
	if n.travel < 0 {
		n.travel = 0
	}
	if n.travel >= n.Threshold+n.Length {
		n.present = false
		n.travel = 0
		n.fired++
	}
}

// Get reports whether the note is blocking the beam.
func (n *NoteFeed) Get() bool {
	return n.present && n.travel >= n.Threshold
}

// Insert places a fresh note at the start of the path.
func (n *NoteFeed) Insert() {
	n.present = true
	n.travel = 0
}

func (n *NoteFeed) Present() bool { return n.present }

// Fired counts notes that have left the shooter.
func (n *NoteFeed) Fired() int { return n.fired }
