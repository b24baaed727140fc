package telemetry

import (
	"math"

	"github.com/eclesh/welford"
)

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

// ControlEffort is the mean absolute commanded output.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(s Snapshot) {
	c.sum += math.Abs(s.Output)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// TrackingError is the mean absolute distance from setpoint. Samples with
// a non-finite position are skipped.
type TrackingError struct {
	sum     float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (e *TrackingError) Name() string { return "tracking_error" }

func (e *TrackingError) Observe(s Snapshot) {
	if math.IsNaN(s.Position) || math.IsInf(s.Position, 0) {
		return
	}
	e.sum += math.Abs(s.Setpoint - s.Position)
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return math.Inf(1)
	}
	return e.sum / float64(e.samples)
}

func (e *TrackingError) Reset() {
	e.sum = 0
	e.samples = 0
}

// FaultRate is the fraction of ticks that reported a fault.
type FaultRate struct {
	faults  int
	samples int
}

func NewFaultRate() *FaultRate { return &FaultRate{} }

func (f *FaultRate) Name() string { return "fault_rate" }

func (f *FaultRate) Observe(s Snapshot) {
	f.samples++
	if s.Fault != "" && s.Fault != "none" {
		f.faults++
	}
}

func (f *FaultRate) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return float64(f.faults) / float64(f.samples)
}

func (f *FaultRate) Reset() {
	f.faults = 0
	f.samples = 0
}

// LongestState is the longest run of ticks spent in one of the watched
// states. Watching the non-terminal states of a sequencer exposes stalls.
type LongestState struct {
	watch   map[string]bool
	longest int
}

func NewLongestState(states ...string) *LongestState {
	watch := make(map[string]bool, len(states))
	for _, s := range states {
		watch[s] = true
	}
	return &LongestState{watch: watch}
}

func (l *LongestState) Name() string { return "longest_state" }

func (l *LongestState) Observe(s Snapshot) {
	if len(l.watch) > 0 && !l.watch[s.State] {
		return
	}
	if s.StateTicks > l.longest {
		l.longest = s.StateTicks
	}
}

func (l *LongestState) Value() float64 { return float64(l.longest) }

func (l *LongestState) Reset() { l.longest = 0 }

// OutputSpread is the standard deviation of the commanded output. A loop
// that chatters around its setpoint scores high even when its mean effort
// is low.
type OutputSpread struct {
	stats   *welford.Stats
	samples int
}

func NewOutputSpread() *OutputSpread { return &OutputSpread{stats: welford.New()} }

func (o *OutputSpread) Name() string { return "output_spread" }

func (o *OutputSpread) Observe(s Snapshot) {
	if math.IsNaN(s.Output) {
		return
	}
	o.stats.Add(s.Output)
	o.samples++
}

func (o *OutputSpread) Value() float64 {
	if o.samples < 2 {
		return 0
	}
	return o.stats.Stddev()
}

func (o *OutputSpread) Reset() {
	o.stats = welford.New()
	o.samples = 0
}
