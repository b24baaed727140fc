// Package scenario runs the intake and shooter against simulated hardware
// and drives them with scripted commands.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/mechctl/internal/config"
	"github.com/san-kum/mechctl/internal/executor"
	"github.com/san-kum/mechctl/internal/hal"
	"github.com/san-kum/mechctl/internal/mechanism"
	"github.com/san-kum/mechctl/internal/plant"
	"github.com/san-kum/mechctl/internal/telemetry"
)

// Bench is a complete simulated robot: plants, mechanisms, an executor
// and a recorder. A bench runs one scenario at a time.
type Bench struct {
	Config *config.Config

	Pivot    *plant.Pivot
	Rollers  *plant.Motor
	Left     *plant.LinearActuator
	Right    *plant.LinearActuator
	Flywheel *plant.Flywheel
	Feed     *plant.NoteFeed

	Intake  *mechanism.Intake
	Shooter *mechanism.Shooter
	Joint   *mechanism.Joint

	Executor *executor.Executor
	Recorder *telemetry.Recorder

	script *script
}

type benchOptions struct {
	noteDetector hal.BinarySensor
	flywheelTaps []hal.NormalizedActuator
}

type Option func(*benchOptions)

// WithNoteDetector replaces the simulated beam break.
func WithNoteDetector(s hal.BinarySensor) Option {
	return func(o *benchOptions) { o.noteDetector = s }
}

// WithFlywheelTap copies every flywheel command to an extra actuator.
func WithFlywheelTap(a hal.NormalizedActuator) Option {
	return func(o *benchOptions) { o.flywheelTaps = append(o.flywheelTaps, a) }
}

func NewBench(cfg *config.Config, opts ...Option) (*Bench, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o benchOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := cfg.Sim
	b := &Bench{
		Config:   cfg,
		Pivot:    plant.NewPivot(s.PivotStart, s.PivotFreeSpeed, s.PivotTau, s.PivotMin, s.PivotMax),
		Rollers:  plant.NewMotor(false),
		Left:     plant.NewLinearActuator(s.ActuatorStart, s.ActuatorSpeed),
		Right:    plant.NewLinearActuator(s.ActuatorStart, s.ActuatorSpeed),
		Flywheel: plant.NewFlywheel(s.FlywheelFreeSpeed, s.FlywheelTau),
		Executor: executor.New(),
		script:   newScript(),
	}
	b.Feed = plant.NewNoteFeed(b.Flywheel, s.NoteThreshold, s.NoteLength)

	var err error
	b.Intake, err = mechanism.NewIntake(cfg.AngleConfig(), mechanism.IntakeHardware{
		LeftAngle:  b.Pivot.Left,
		RightAngle: b.Pivot.Right,
		Rollers:    b.Rollers,
		Encoder:    b.Pivot,
	})
	if err != nil {
		return nil, err
	}

	var detector hal.BinarySensor = b.Feed
	if o.noteDetector != nil {
		detector = o.noteDetector
	}
	var flywheelB hal.NormalizedActuator = b.Flywheel.B
	if len(o.flywheelTaps) > 0 {
		flywheelB = append(hal.Tee{b.Flywheel.B}, o.flywheelTaps...)
	}
	b.Shooter, err = mechanism.NewShooter(cfg.MechanismShooterConfig(), mechanism.ShooterHardware{
		FlywheelA:     b.Flywheel.A,
		FlywheelB:     flywheelB,
		LeftActuator:  b.Left,
		RightActuator: b.Right,
		LeftPosition:  b.Left,
		RightPosition: b.Right,
		NoteDetector:  detector,
	})
	if err != nil {
		return nil, err
	}
	b.Joint = mechanism.NewJoint(b.Intake, b.Shooter)

	// The script runs first so commands land in the same tick.
	b.Executor.Register(b.script)
	b.Executor.Register(b.Intake)
	b.Executor.Register(b.Shooter)

	b.Executor.AddPlant(b.Pivot)
	b.Executor.AddPlant(b.Left)
	b.Executor.AddPlant(b.Right)
	b.Executor.AddPlant(b.Flywheel)
	b.Executor.AddPlant(b.Feed)

	b.Recorder = telemetry.NewRecorder(b.Sources()...)
	b.Recorder.AddMetric("intake", telemetry.NewTrackingError())
	b.Recorder.AddMetric("intake", telemetry.NewControlEffort())
	b.Recorder.AddMetric("intake", telemetry.NewFaultRate())
	b.Recorder.AddMetric("intake", telemetry.NewOutputSpread())
	b.Recorder.AddMetric("shooter", telemetry.NewTrackingError())
	b.Recorder.AddMetric("shooter", telemetry.NewFaultRate())
	b.Recorder.AddMetric("shooter", telemetry.NewLongestState("raising", "lowering"))
	b.Recorder.AddMetric("loader", telemetry.NewLongestState("loading", "unloading"))
	b.Executor.AddObserver(b.Recorder)

	return b, nil
}

// Sources are the telemetry sources of every mechanism on the bench.
func (b *Bench) Sources() []telemetry.Source {
	return []telemetry.Source{b.Intake, b.Shooter, b.Shooter.Loader()}
}

// Load queues a scenario's events relative to the current tick.
func (b *Bench) Load(sc *Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	b.script.load(b, sc, b.Executor.TickCount())
	return nil
}

// Step runs one tick at the configured period.
func (b *Bench) Step() []executor.TickError {
	return b.Executor.Step(b.Config.PeriodDuration(), 0)
}

type Result struct {
	Scenario string
	Ticks    int
	Overruns int
	Elapsed  time.Duration
	Series   map[string][]telemetry.Snapshot
	Metrics  map[string]float64
}

// Run loads sc and executes it. A scenario without a tick count runs for
// the configured number of simulated ticks. A cancelled realtime run
// returns what was recorded so far.
func (b *Bench) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := b.Load(sc); err != nil {
		return nil, err
	}
	ticks := sc.Ticks
	if ticks == 0 {
		ticks = b.Config.Sim.Ticks
	}

	logger := log.WithFields(log.Fields{"scenario": sc.Name, "ticks": ticks})
	logger.Info("scenario starting")

	res, err := b.Executor.Run(ctx, executor.Config{
		Period:   b.Config.PeriodDuration(),
		Ticks:    ticks,
		Realtime: b.Config.Sim.Realtime,
	})
	if err != nil && !(errors.Is(err, executor.ErrCanceled) && res != nil && b.Config.Sim.Realtime) {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	out := &Result{
		Scenario: sc.Name,
		Ticks:    res.Ticks,
		Overruns: len(res.Overruns),
		Elapsed:  res.Elapsed,
		Series:   make(map[string][]telemetry.Snapshot),
		Metrics:  b.Recorder.Metrics(),
	}
	for _, name := range b.Recorder.Mechanisms() {
		out.Series[name] = b.Recorder.Series(name)
	}
	logger.WithFields(log.Fields{"elapsed": res.Elapsed, "overruns": out.Overruns}).Info("scenario finished")
	return out, nil
}
