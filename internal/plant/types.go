// Package plant simulates the robot's mechanisms so the controllers can run
// against something that moves. Each plant implements the hal capability
// interfaces and is advanced once per executor tick.
package plant

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

type Control []float64

type Dynamics interface {
	Derivative(x State, u Control) State
}

// Euler is a forward Euler integrator. Plant dynamics here are first order
// and slow relative to the tick, so nothing finer is needed.
type Euler struct{}

func (Euler) Step(dyn Dynamics, x State, u Control, dt float64) State {
	dx := dyn.Derivative(x, u)
	result := make(State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// substep integrates over dt in slices no longer than half the plant's
// time constant so the explicit step stays stable.
func substep(dyn Dynamics, x State, u Control, dt, tau float64) State {
	n := 1
	if tau > 0 && dt > tau/2 {
		n = int(math.Ceil(dt / (tau / 2)))
	}
	h := dt / float64(n)
	for i := 0; i < n; i++ {
		x = Euler{}.Step(dyn, x, u, h)
	}
	return x
}
