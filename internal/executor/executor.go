// Package executor runs mechanisms at a fixed control period. Each tick it
// calls every registered mechanism exactly once, advances any simulated
// plants by one period, then notifies observers.
//
// Mechanisms are stepped sequentially from a single goroutine; a mechanism
// is never invoked concurrently with itself or with another mechanism.
package executor

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultPeriod is the standard 50Hz control loop.
const DefaultPeriod = 20 * time.Millisecond

// Tick identifies one invocation of the control loop.
type Tick struct {
	Index  int
	Time   float64
	Period time.Duration
}

// Dt is the tick period in seconds.
func (t Tick) Dt() float64 { return t.Period.Seconds() }

// Periodic is implemented by every mechanism the executor drives.
// Periodic must return well inside the tick period.
type Periodic interface {
	Name() string
	Periodic(tick Tick)
}

// Plant is simulated hardware advanced after the mechanisms have commanded
// their outputs.
type Plant interface {
	Advance(dt float64)
}

type Observer interface {
	OnTick(tick Tick)
}

type Config struct {
	Period time.Duration
	// Ticks bounds the run; zero runs until the context is cancelled.
	Ticks int
	// Realtime paces ticks with a wall-clock ticker. Otherwise ticks run
	// back to back on a virtual clock.
	Realtime bool
	// Budget is the per-mechanism time allowance; a mechanism that takes
	// longer is reported as an overrun. Zero uses a quarter of the period.
	Budget time.Duration
}

func DefaultConfig() Config {
	return Config{Period: DefaultPeriod}
}

type Result struct {
	Ticks    int
	Overruns []TickError
	Elapsed  time.Duration
}

type Executor struct {
	mechanisms []Periodic
	plants     []Plant
	observers  []Observer
	tick       int
	log        *log.Entry
}

func New() *Executor {
	return &Executor{
		mechanisms: make([]Periodic, 0),
		plants:     make([]Plant, 0),
		observers:  make([]Observer, 0),
		log:        log.WithField("component", "executor"),
	}
}

func (e *Executor) Register(p Periodic)    { e.mechanisms = append(e.mechanisms, p) }
func (e *Executor) AddPlant(p Plant)       { e.plants = append(e.plants, p) }
func (e *Executor) AddObserver(o Observer) { e.observers = append(e.observers, o) }

// TickCount is the number of ticks executed so far.
func (e *Executor) TickCount() int { return e.tick }

func (e *Executor) validateConfig(cfg Config) error {
	if cfg.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %s", ErrInvalidConfig, cfg.Period)
	}
	if cfg.Ticks < 0 {
		return fmt.Errorf("%w: ticks must be non-negative, got %d", ErrInvalidConfig, cfg.Ticks)
	}
	if cfg.Ticks == 0 && !cfg.Realtime {
		return fmt.Errorf("%w: a virtual-clock run needs a tick count", ErrInvalidConfig)
	}
	return nil
}

// Run executes ticks until cfg.Ticks is reached or ctx is done.
func (e *Executor) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := e.validateConfig(cfg); err != nil {
		return nil, err
	}
	budget := cfg.Budget
	if budget <= 0 {
		budget = cfg.Period / 4
	}

	result := &Result{Overruns: make([]TickError, 0)}
	start := time.Now()
	defer func() { result.Elapsed = time.Since(start) }()

	var ticker *time.Ticker
	if cfg.Realtime {
		ticker = time.NewTicker(cfg.Period)
		defer ticker.Stop()
	}

	e.log.WithFields(log.Fields{
		"period":     cfg.Period,
		"ticks":      cfg.Ticks,
		"realtime":   cfg.Realtime,
		"mechanisms": len(e.mechanisms),
	}).Debug("executor starting")

	for i := 0; cfg.Ticks == 0 || i < cfg.Ticks; i++ {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		default:
		}

		result.Overruns = append(result.Overruns, e.Step(cfg.Period, budget)...)
		result.Ticks++

		if ticker != nil {
			select {
			case <-ctx.Done():
				return result, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
			case <-ticker.C:
			}
		}
	}

	return result, nil
}

// Step runs a single tick and returns any budget overruns.
func (e *Executor) Step(period, budget time.Duration) []TickError {
	tick := Tick{
		Index:  e.tick,
		Time:   float64(e.tick) * period.Seconds(),
		Period: period,
	}

	var overruns []TickError
	for _, m := range e.mechanisms {
		began := time.Now()
		m.Periodic(tick)
		if took := time.Since(began); budget > 0 && took > budget {
			err := TickError{Tick: tick.Index, Mechanism: m.Name(), Took: took, Wrapped: ErrOverrun}
			e.log.WithFields(log.Fields{
				"tick":      tick.Index,
				"mechanism": m.Name(),
				"took":      took,
				"budget":    budget,
			}).Warn("mechanism overran its tick budget")
			overruns = append(overruns, err)
		}
	}

	for _, p := range e.plants {
		p.Advance(tick.Dt())
	}
	for _, o := range e.observers {
		o.OnTick(tick)
	}

	e.tick++
	return overruns
}
