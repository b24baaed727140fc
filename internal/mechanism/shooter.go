package mechanism

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/mechctl/internal/control"
	"github.com/san-kum/mechctl/internal/executor"
	"github.com/san-kum/mechctl/internal/hal"
	"github.com/san-kum/mechctl/internal/telemetry"
)

type ShooterConfig struct {
	Elevation control.ElevationConfig
	Load      control.LoadConfig
	// AmpSpeed and SpeakerSpeed are the flywheel outputs for the two
	// scoring targets.
	AmpSpeed     float64
	SpeakerSpeed float64
}

func (c ShooterConfig) Validate() error {
	if err := c.Elevation.Validate(); err != nil {
		return err
	}
	if err := c.Load.Validate(); err != nil {
		return err
	}
	for name, v := range map[string]float64{"amp": c.AmpSpeed, "speaker": c.SpeakerSpeed} {
		if v < -1 || v > 1 {
			return fmt.Errorf("%w: %s speed %f outside [-1, 1]", control.ErrInvalidConfig, name, v)
		}
	}
	return nil
}

type ShooterHardware struct {
	FlywheelA     hal.NormalizedActuator
	FlywheelB     hal.NormalizedActuator
	LeftActuator  hal.NormalizedActuator
	RightActuator hal.NormalizedActuator
	LeftPosition  hal.PositionSensor
	// RightPosition is the reference for every elevation decision.
	RightPosition hal.PositionSensor
	NoteDetector  hal.BinarySensor
}

func (h ShooterHardware) validate() error {
	if h.FlywheelA == nil || h.FlywheelB == nil || h.LeftActuator == nil || h.RightActuator == nil ||
		h.LeftPosition == nil || h.RightPosition == nil || h.NoteDetector == nil {
		return fmt.Errorf("%w: shooter needs two flywheel motors, two actuators with sensors and a note detector", ErrMissingHardware)
	}
	return nil
}

// Shooter owns the flywheel, the elevation actuators and the note loader.
type Shooter struct {
	cfg    ShooterConfig
	elev   *control.ElevationController
	seq    *control.LoadSequencer
	hw     ShooterHardware
	logger *log.Entry

	flywheel    float64
	jog         float64
	target      float64
	pending     bool
	elevation   control.ElevationState
	elevOut     control.Output
	elevTicks   int
	load        control.LoadState
	flywheelOut float64

	left  float64
	right float64
	note  bool
}

func NewShooter(cfg ShooterConfig, hw ShooterHardware) (*Shooter, error) {
	if err := hw.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("shooter: %w", err)
	}
	elev, err := control.NewElevationController(cfg.Elevation)
	if err != nil {
		return nil, fmt.Errorf("shooter: %w", err)
	}
	seq, err := control.NewLoadSequencer(cfg.Load)
	if err != nil {
		return nil, fmt.Errorf("shooter: %w", err)
	}
	return &Shooter{
		cfg:    cfg,
		elev:   elev,
		seq:    seq,
		hw:     hw,
		logger: log.WithField("mechanism", "shooter"),
	}, nil
}

func (s *Shooter) Name() string { return "shooter" }

// RunFlywheel spins both flywheel motors at speed. It takes the flywheel
// away from an active load sequence.
func (s *Shooter) RunFlywheel(speed float64) {
	if s.load.Phase.Active() {
		s.logger.WithField("phase", s.load.Phase).Info("load sequence cancelled by flywheel command")
		s.load = s.seq.Cancel(s.load)
	}
	s.flywheel = hal.Normalize(speed)
}

func (s *Shooter) StopFlywheel() { s.RunFlywheel(0) }

func (s *Shooter) ScoreInAmp() { s.RunFlywheel(s.cfg.AmpSpeed) }

func (s *Shooter) ScoreInSpeaker() { s.RunFlywheel(s.cfg.SpeakerSpeed) }

// SetElevation moves both actuators toward a fraction of full stroke.
func (s *Shooter) SetElevation(target float64) {
	s.jog = 0
	s.target = target
	s.pending = true
}

func (s *Shooter) ElevateUp() { s.SetElevation(1) }

func (s *Shooter) ElevateDown() { s.SetElevation(0) }

// Raise runs the actuators forward every tick until the upper travel bound.
func (s *Shooter) Raise() { s.startJog(1) }

// Lower runs the actuators in reverse every tick until the lower travel bound.
func (s *Shooter) Lower() { s.startJog(-1) }

func (s *Shooter) startJog(dir float64) {
	s.pending = false
	s.elevation = s.elev.Cancel(s.elevation)
	s.jog = dir
}

// StopElevation stops the actuators and abandons any target.
func (s *Shooter) StopElevation() {
	s.pending = false
	s.jog = 0
	s.elevation = s.elev.Cancel(s.elevation)
}

// LoadNoteForAmp feeds the note until the beam break sees it.
func (s *Shooter) LoadNoteForAmp() {
	s.load = s.seq.Load(s.load)
}

// UnloadNoteForSpeaker behaves exactly like LoadNoteForAmp.
func (s *Shooter) UnloadNoteForSpeaker() {
	s.load = s.seq.Unload(s.load)
}

func (s *Shooter) CancelLoad() {
	s.load = s.seq.Cancel(s.load)
}

func (s *Shooter) Periodic(tick executor.Tick) {
	s.left = s.hw.LeftPosition.Read()
	s.right = s.hw.RightPosition.Read()
	s.note = s.hw.NoteDetector.Get()

	s.stepElevation(tick)
	s.stepLoader(tick)
}

func (s *Shooter) stepElevation(tick executor.Tick) {
	prev := s.elevation
	if s.pending {
		s.elevation = s.elev.Request(s.target, s.right, s.elevation)
		s.pending = false
	}

	var out control.Output
	if s.jog != 0 {
		out = s.elev.Jog(s.right, s.jog)
	} else {
		s.elevation, out = s.elev.Step(s.right, s.elevation)
	}
	s.elevOut = out

	if s.elevation.Phase != prev.Phase {
		s.elevTicks = 0
		s.logger.WithFields(log.Fields{
			"tick":     tick.Index,
			"from":     prev.Phase,
			"to":       s.elevation.Phase,
			"position": s.right,
			"target":   s.elevation.Target,
		}).Debug("elevation phase change")
	}
	s.elevTicks++
	if s.elevation.Fault != prev.Fault && s.elevation.Fault != control.FaultNone {
		s.logger.WithField("tick", tick.Index).WithError(s.elevation.Fault.Err()).Warn("elevation fault")
	}

	if out.Left == 0 {
		s.hw.LeftActuator.Stop()
		s.hw.RightActuator.Stop()
		return
	}
	s.hw.LeftActuator.Set(out.Left)
	s.hw.RightActuator.Set(out.Right)
}

func (s *Shooter) stepLoader(tick executor.Tick) {
	prev := s.load.Phase
	next, feed := s.seq.Step(s.note, s.load)
	s.load = next

	out := s.flywheel
	if prev.Active() {
		out = feed
		if next.Phase == control.LoadComplete {
			s.flywheel = 0
			s.logger.WithFields(log.Fields{"tick": tick.Index, "sequence": prev}).Info("note loaded")
		}
	}
	s.flywheelOut = out

	if out == 0 {
		s.hw.FlywheelA.Stop()
		s.hw.FlywheelB.Stop()
		return
	}
	s.hw.FlywheelA.Set(out)
	s.hw.FlywheelB.Set(out)
}

// IsNoteLoaded is the beam-break reading from the most recent tick.
func (s *Shooter) IsNoteLoaded() bool { return s.note }

func (s *Shooter) Elevation() control.ElevationState { return s.elevation }
func (s *Shooter) ElevationOutput() control.Output  { return s.elevOut }
func (s *Shooter) Load() control.LoadState           { return s.load }
func (s *Shooter) FlywheelOutput() float64           { return s.flywheelOut }

// ActuatorPositions returns the left and right readings from the most
// recent tick.
func (s *Shooter) ActuatorPositions() (left, right float64) { return s.left, s.right }

func (s *Shooter) Telemetry() telemetry.Snapshot {
	return telemetry.Snapshot{
		Mechanism:  s.Name(),
		Position:   s.right,
		Setpoint:   s.elevation.Target,
		Output:     s.elevOut.Right,
		State:      s.elevation.Phase.String(),
		Fault:      s.elevation.Fault.String(),
		StateTicks: s.elevTicks,
		Values: map[string]float64{
			"actuator_left":  s.left,
			"actuator_right": s.right,
			"flywheel":       s.flywheelOut,
			"note":           telemetry.Bool(s.note),
		},
	}
}

// Loader is a telemetry view of the note loader.
func (s *Shooter) Loader() telemetry.Source { return loaderView{s} }

type loaderView struct{ s *Shooter }

func (v loaderView) Name() string { return "loader" }

func (v loaderView) Telemetry() telemetry.Snapshot {
	s := v.s
	return telemetry.Snapshot{
		Mechanism:  v.Name(),
		Position:   telemetry.Bool(s.note),
		Setpoint:   1,
		Output:     s.flywheelOut,
		State:      s.load.Phase.String(),
		Fault:      control.FaultNone.String(),
		StateTicks: s.load.Ticks,
		Values: map[string]float64{
			"note": telemetry.Bool(s.note),
		},
	}
}
