package executor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig indicates an unusable executor configuration.
	ErrInvalidConfig = errors.New("executor: invalid configuration")

	// ErrOverrun indicates a mechanism exceeded its share of the tick.
	ErrOverrun = errors.New("executor: tick budget overrun")

	// ErrCanceled indicates the run was interrupted by its context.
	ErrCanceled = errors.New("executor: run canceled")
)

// TickError ties an error to the tick and mechanism that produced it.
type TickError struct {
	Tick      int
	Mechanism string
	Took      time.Duration
	Wrapped   error
}

func (e TickError) Error() string {
	return fmt.Sprintf("tick %d (%s, %s): %v", e.Tick, e.Mechanism, e.Took, e.Wrapped)
}

func (e TickError) Unwrap() error {
	return e.Wrapped
}
