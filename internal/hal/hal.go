// Package hal defines the hardware capabilities the mechanism controllers
// consume. Real motor controllers, encoders and beam-break sensors are
// plugged in behind these interfaces, as are the simulated plants used by
// the bench.
package hal

// NormalizedActuator drives a motor or linear actuator with a normalized
// output in [-1, 1].
type NormalizedActuator interface {
	Set(value float64)
	Stop()
}

// PositionSensor reports a continuous position. Actuators report a fraction
// of travel in [0, 1]; encoders report absolute rotations.
type PositionSensor interface {
	Read() float64
}

// BinarySensor reports a boolean state such as a beam break.
type BinarySensor interface {
	Get() bool
}

// PositionFunc adapts a function to PositionSensor.
type PositionFunc func() float64

func (f PositionFunc) Read() float64 { return f() }

// BinaryFunc adapts a function to BinarySensor.
type BinaryFunc func() bool

func (f BinaryFunc) Get() bool { return f() }

// Normalize bounds v to the [-1, 1] range accepted by every actuator.
// NaN maps to 0.
func Normalize(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// Tee fans one command out to several actuators.
type Tee []NormalizedActuator

func (t Tee) Set(value float64) {
	for _, a := range t {
		a.Set(value)
	}
}

func (t Tee) Stop() {
	for _, a := range t {
		a.Stop()
	}
}
