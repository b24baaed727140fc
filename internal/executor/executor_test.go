package executor

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingMechanism struct {
	name  string
	ticks []int
	log   *[]string
	delay time.Duration
}

func (c *countingMechanism) Name() string { return c.name }

func (c *countingMechanism) Periodic(tick Tick) {
	c.ticks = append(c.ticks, tick.Index)
	if c.log != nil {
		*c.log = append(*c.log, c.name)
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
}

type testPlant struct {
	total float64
	log   *[]string
}

func (p *testPlant) Advance(dt float64) {
	p.total += dt
	if p.log != nil {
		*p.log = append(*p.log, "plant")
	}
}

type testObserver struct {
	last Tick
	seen int
}

func (o *testObserver) OnTick(tick Tick) {
	o.last = tick
	o.seen++
}

func TestExecutorRun(t *testing.T) {
	e := New()
	m := &countingMechanism{name: "m"}
	p := &testPlant{}
	o := &testObserver{}
	e.Register(m)
	e.AddPlant(p)
	e.AddObserver(o)

	result, err := e.Run(context.Background(), Config{Period: 20 * time.Millisecond, Ticks: 50})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Ticks != 50 {
		t.Errorf("expected 50 ticks, got %d", result.Ticks)
	}
	if len(m.ticks) != 50 {
		t.Errorf("mechanism should run once per tick, ran %d times", len(m.ticks))
	}
	for i, idx := range m.ticks {
		if idx != i {
			t.Fatalf("tick %d delivered out of order as %d", i, idx)
		}
	}
	if diff := p.total - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected plant advanced 1.0s, got %f", p.total)
	}
	if o.seen != 50 || o.last.Index != 49 {
		t.Errorf("observer saw %d ticks, last %d", o.seen, o.last.Index)
	}
	if e.TickCount() != 50 {
		t.Errorf("expected tick count 50, got %d", e.TickCount())
	}
}

func TestExecutorOrdering(t *testing.T) {
	var order []string
	e := New()
	e.Register(&countingMechanism{name: "intake", log: &order})
	e.Register(&countingMechanism{name: "shooter", log: &order})
	e.AddPlant(&testPlant{log: &order})

	e.Step(DefaultPeriod, 0)

	want := []string{"intake", "shooter", "plant"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestExecutorInvalidConfig(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero period", Config{Period: 0, Ticks: 10}},
		{"negative period", Config{Period: -time.Millisecond, Ticks: 10}},
		{"negative ticks", Config{Period: DefaultPeriod, Ticks: -1}},
		{"unbounded virtual", Config{Period: DefaultPeriod}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Run(context.Background(), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestExecutorCanceled(t *testing.T) {
	e := New()
	e.Register(&countingMechanism{name: "m"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Run(ctx, Config{Period: DefaultPeriod, Ticks: 10})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if result.Ticks != 0 {
		t.Errorf("expected no ticks after cancel, got %d", result.Ticks)
	}
}

func TestExecutorRealtimeCancel(t *testing.T) {
	e := New()
	m := &countingMechanism{name: "m"}
	e.Register(m)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := e.Run(ctx, Config{Period: 5 * time.Millisecond, Realtime: true})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if result.Ticks == 0 {
		t.Error("expected some realtime ticks before cancel")
	}
}

func TestExecutorOverrun(t *testing.T) {
	e := New()
	e.Register(&countingMechanism{name: "slow", delay: 5 * time.Millisecond})
	e.Register(&countingMechanism{name: "fast"})

	overruns := e.Step(DefaultPeriod, time.Millisecond)
	if len(overruns) != 1 {
		t.Fatalf("expected 1 overrun, got %d", len(overruns))
	}
	if overruns[0].Mechanism != "slow" {
		t.Errorf("expected slow mechanism overrun, got %s", overruns[0].Mechanism)
	}
	if !errors.Is(overruns[0], ErrOverrun) {
		t.Errorf("overrun should wrap ErrOverrun")
	}
}
