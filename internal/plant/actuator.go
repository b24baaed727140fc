package plant

// LinearActuator is a motorized linear actuator with a position feedback
// potentiometer reporting a fraction of stroke.
type LinearActuator struct {
	*Motor
	// Speed is stroke fraction per second at full output.
	Speed float64

	x        State
	override *float64
}

func NewLinearActuator(start, speed float64) *LinearActuator {
	return &LinearActuator{Motor: NewMotor(false), Speed: speed, x: State{start}}
}

func (a *LinearActuator) Derivative(x State, u Control) State {
	return State{u[0] * a.Speed}
}

func (a *LinearActuator) Advance(dt float64) {
	a.x = Euler{}.Step(a, a.x, Control{a.Value()}, dt)
	if a.x[0] > 1 {
		a.x[0] = 1
	}
	if a.x[0] < 0 {
		a.x[0] = 0
	}
}

func (a *LinearActuator) Read() float64 {
	if a.override != nil {
		return *a.override
	}
	return a.x[0]
}

func (a *LinearActuator) Position() float64 { return a.x[0] }

func (a *LinearActuator) FailSensor(v float64) { a.override = &v }

func (a *LinearActuator) RestoreSensor() { a.override = nil }
