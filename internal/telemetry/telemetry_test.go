package telemetry

import (
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mechctl/internal/executor"
)

type fakeSource struct {
	name string
	snap Snapshot
}

func (f *fakeSource) Name() string        { return f.name }
func (f *fakeSource) Telemetry() Snapshot { return f.snap }

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	assert.Equal(t, 0.0, m.Value())

	m.Observe(Snapshot{Output: 0.2})
	m.Observe(Snapshot{Output: -0.4})
	assert.InDelta(t, 0.3, m.Value(), 1e-12)

	m.Reset()
	assert.Equal(t, 0.0, m.Value())
}

func TestTrackingError(t *testing.T) {
	m := NewTrackingError()
	assert.True(t, math.IsInf(m.Value(), 1), "no samples should be infinite error")

	m.Observe(Snapshot{Position: 1, Setpoint: 3})
	m.Observe(Snapshot{Position: 5, Setpoint: 3})
	m.Observe(Snapshot{Position: math.NaN(), Setpoint: 3})
	assert.InDelta(t, 2.0, m.Value(), 1e-12)
}

func TestFaultRate(t *testing.T) {
	m := NewFaultRate()
	m.Observe(Snapshot{Fault: "none"})
	m.Observe(Snapshot{Fault: "sensor_out_of_range"})
	m.Observe(Snapshot{})
	m.Observe(Snapshot{Fault: "sensor_out_of_range"})
	assert.InDelta(t, 0.5, m.Value(), 1e-12)
}

func TestOutputSpread(t *testing.T) {
	m := NewOutputSpread()
	m.Observe(Snapshot{Output: 0.2})
	assert.Zero(t, m.Value())

	for i := 0; i < 10; i++ {
		m.Observe(Snapshot{Output: 0.2})
	}
	assert.InDelta(t, 0, m.Value(), 1e-12)

	m.Reset()
	for i := 0; i < 10; i++ {
		m.Observe(Snapshot{Output: float64(1 - 2*(i%2))})
	}
	m.Observe(Snapshot{Output: math.NaN()})
	assert.Greater(t, m.Value(), 0.9)
	assert.Less(t, m.Value(), 1.2)
}

func TestLongestState(t *testing.T) {
	m := NewLongestState("loading", "unloading")
	m.Observe(Snapshot{State: "loading", StateTicks: 12})
	m.Observe(Snapshot{State: "idle", StateTicks: 400})
	m.Observe(Snapshot{State: "unloading", StateTicks: 30})
	assert.Equal(t, 30.0, m.Value())

	all := NewLongestState()
	all.Observe(Snapshot{State: "idle", StateTicks: 400})
	assert.Equal(t, 400.0, all.Value())
}

func TestRecorder(t *testing.T) {
	intake := &fakeSource{name: "intake", snap: Snapshot{Position: 1, Setpoint: 2, Output: 0.1, State: "tracking"}}
	shooter := &fakeSource{name: "shooter", snap: Snapshot{Output: -0.5, State: "idle"}}

	r := NewRecorder(intake, shooter)
	r.AddMetric("intake", NewTrackingError())
	r.AddMetric("shooter", NewControlEffort())

	for i := 0; i < 10; i++ {
		r.OnTick(executor.Tick{Index: i, Time: float64(i) * 0.02})
	}

	assert.Equal(t, []string{"intake", "shooter"}, r.Mechanisms())
	require.Len(t, r.Series("intake"), 10)

	last, ok := r.Latest("intake")
	require.True(t, ok)
	assert.Equal(t, 9, last.Tick)
	assert.Equal(t, "intake", last.Mechanism)
	assert.InDelta(t, 0.18, last.Time, 1e-12)

	metrics := r.Metrics()
	assert.InDelta(t, 1.0, metrics["intake.tracking_error"], 1e-12)
	assert.InDelta(t, 0.5, metrics["shooter.control_effort"], 1e-12)

	r.Reset()
	_, ok = r.Latest("intake")
	assert.False(t, ok)
	assert.Equal(t, 0.0, r.Metrics()["shooter.control_effort"])
}

func TestSnapshotChannels(t *testing.T) {
	s := Snapshot{Values: map[string]float64{"flywheel": 0.5, "actuator_a": 0.3}}
	assert.Equal(t, []string{"actuator_a", "flywheel"}, s.Channels())
	assert.Equal(t, 0.5, s.Value("flywheel"))
	assert.Equal(t, 0.0, s.Value("missing"))
	assert.Equal(t, 1.0, Bool(true))
	assert.Equal(t, 0.0, Bool(false))
}

func TestPublisher(t *testing.T) {
	src := &fakeSource{name: "shooter", snap: Snapshot{
		Position: 0.4,
		Setpoint: 0.6,
		Output:   1,
		State:    "raising",
		Values:   map[string]float64{"note": 1},
	}}

	p, err := NewPublisher("mechctl", src)
	require.NoError(t, err)

	p.OnTick(executor.Tick{Index: 0})
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ticks))
	assert.Equal(t, 0.4, testutil.ToFloat64(p.position.WithLabelValues("shooter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.state.WithLabelValues("shooter", "raising")))

	src.snap.State = "holding"
	src.snap.Fault = "sensor_out_of_range"
	p.OnTick(executor.Tick{Index: 1})
	assert.Equal(t, 1, testutil.CollectAndCount(p.state), "stale state series should be dropped")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.faults.WithLabelValues("shooter", "sensor_out_of_range")))

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `mechctl_position{mechanism="shooter"} 0.4`), text)
	assert.True(t, strings.Contains(text, `mechctl_channel{channel="note",mechanism="shooter"} 1`), text)
}
