// Package telemetry collects the read-only per-tick view of each mechanism:
// position, setpoint, commanded output and state-machine state. Snapshots
// feed the run recorder, the metrics, the live view and the Prometheus
// publisher. Nothing here feeds back into control.
package telemetry

import (
	"sort"

	"github.com/san-kum/mechctl/internal/executor"
)

// Snapshot is one mechanism's telemetry for one tick.
type Snapshot struct {
	Mechanism string
	Tick      int
	Time      float64
	Position  float64
	Setpoint  float64
	Output    float64
	State     string
	Fault     string
	// StateTicks counts ticks spent in the current state. A sequence stuck
	// waiting on a sensor shows up as a growing count.
	StateTicks int
	// Values carries mechanism-specific channels (actuator positions,
	// flywheel output, note detector).
	Values map[string]float64
}

// Value returns a named channel, or 0.
func (s Snapshot) Value(name string) float64 {
	return s.Values[name]
}

// Channels returns the channel names in sorted order.
func (s Snapshot) Channels() []string {
	names := make([]string, 0, len(s.Values))
	for k := range s.Values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Source is anything that publishes a snapshot once per tick.
type Source interface {
	Name() string
	Telemetry() Snapshot
}

// Bool encodes a flag as a channel value.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func stamp(s Snapshot, src Source, tick executor.Tick) Snapshot {
	if s.Mechanism == "" {
		s.Mechanism = src.Name()
	}
	s.Tick = tick.Index
	s.Time = tick.Time
	return s
}
