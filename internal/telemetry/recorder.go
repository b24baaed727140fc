package telemetry

import (
	"sort"

	"github.com/san-kum/mechctl/internal/executor"
)

// Recorder keeps every snapshot of every source and feeds the metrics
// attached to each mechanism.
type Recorder struct {
	sources []Source
	series  map[string][]Snapshot
	metrics map[string][]Metric
}

func NewRecorder(sources ...Source) *Recorder {
	return &Recorder{
		sources: sources,
		series:  make(map[string][]Snapshot),
		metrics: make(map[string][]Metric),
	}
}

// AddMetric attaches m to the named mechanism.
func (r *Recorder) AddMetric(mechanism string, m Metric) {
	r.metrics[mechanism] = append(r.metrics[mechanism], m)
}

func (r *Recorder) OnTick(tick executor.Tick) {
	for _, src := range r.sources {
		snap := stamp(src.Telemetry(), src, tick)
		r.series[snap.Mechanism] = append(r.series[snap.Mechanism], snap)
		for _, m := range r.metrics[snap.Mechanism] {
			m.Observe(snap)
		}
	}
}

// Series returns the recorded snapshots for a mechanism.
func (r *Recorder) Series(mechanism string) []Snapshot {
	return r.series[mechanism]
}

// Latest returns the most recent snapshot for a mechanism.
func (r *Recorder) Latest(mechanism string) (Snapshot, bool) {
	s := r.series[mechanism]
	if len(s) == 0 {
		return Snapshot{}, false
	}
	return s[len(s)-1], true
}

// Mechanisms lists recorded mechanisms in sorted order.
func (r *Recorder) Mechanisms() []string {
	names := make([]string, 0, len(r.series))
	for k := range r.series {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Metrics returns metric values keyed "mechanism.metric".
func (r *Recorder) Metrics() map[string]float64 {
	out := make(map[string]float64)
	for mech, ms := range r.metrics {
		for _, m := range ms {
			out[mech+"."+m.Name()] = m.Value()
		}
	}
	return out
}

// Reset drops recorded series and resets metrics.
func (r *Recorder) Reset() {
	r.series = make(map[string][]Snapshot)
	for _, ms := range r.metrics {
		for _, m := range ms {
			m.Reset()
		}
	}
}
