package control

import "errors"

// Fault conditions. These describe why a controller zeroed its output; they
// are reported through state and telemetry and never returned from Step.
var (
	// ErrSensorOutOfRange indicates a position reading outside the sane envelope.
	ErrSensorOutOfRange = errors.New("control: sensor reading out of range")

	// ErrUnreachableTarget indicates a setpoint outside the soft limits.
	// The setpoint is replaced by the nearest limit.
	ErrUnreachableTarget = errors.New("control: target outside soft limits")
)

// ErrInvalidConfig is returned when a controller is constructed from an
// unusable configuration.
var ErrInvalidConfig = errors.New("control: invalid configuration")

// Fault is the fault reported by the most recent step.
type Fault int

const (
	FaultNone Fault = iota
	FaultSensorOutOfRange
	FaultUnreachableTarget
)

func (f Fault) String() string {
	switch f {
	case FaultSensorOutOfRange:
		return "sensor_out_of_range"
	case FaultUnreachableTarget:
		return "unreachable_target"
	default:
		return "none"
	}
}

// Err maps the fault to its sentinel error, or nil.
func (f Fault) Err() error {
	switch f {
	case FaultSensorOutOfRange:
		return ErrSensorOutOfRange
	case FaultUnreachableTarget:
		return ErrUnreachableTarget
	default:
		return nil
	}
}
