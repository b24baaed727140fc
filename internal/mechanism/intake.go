// Package mechanism binds the controllers in internal/control to hardware.
// Each mechanism reads its sensors once per tick, runs its controllers on
// that snapshot and writes the resulting outputs to its actuators.
//
// Commands (SetSetpoint, RunFlywheel, LoadNoteForAmp, ...) only record
// intent; they take effect on the next Periodic call. Mechanisms are not
// safe for concurrent use and must be driven from the executor goroutine.
package mechanism

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/mechctl/internal/control"
	"github.com/san-kum/mechctl/internal/executor"
	"github.com/san-kum/mechctl/internal/hal"
	"github.com/san-kum/mechctl/internal/telemetry"
)

var ErrMissingHardware = errors.New("mechanism: missing hardware")

// IntakeMode selects what drives the intake pivot.
type IntakeMode int

const (
	IntakeStopped IntakeMode = iota
	IntakeTracking
	IntakeManual
)

func (m IntakeMode) String() string {
	switch m {
	case IntakeTracking:
		return "tracking"
	case IntakeManual:
		return "manual"
	default:
		return "stopped"
	}
}

type IntakeHardware struct {
	LeftAngle  hal.NormalizedActuator
	RightAngle hal.NormalizedActuator
	Rollers    hal.NormalizedActuator
	// Encoder reports the pivot position in absolute rotations.
	Encoder hal.PositionSensor
}

func (h IntakeHardware) validate() error {
	if h.LeftAngle == nil || h.RightAngle == nil || h.Rollers == nil || h.Encoder == nil {
		return fmt.Errorf("%w: intake needs both angle motors, rollers and an encoder", ErrMissingHardware)
	}
	return nil
}

// Intake pivots the ground intake between its soft limits and spins its
// rollers. It starts stopped.
type Intake struct {
	ctrl   *control.AngleController
	hw     IntakeHardware
	logger *log.Entry

	mode        IntakeMode
	setpoint    float64
	angleSpeed  float64
	rollerSpeed float64

	pid       control.PIDState
	out       control.Output
	position  float64
	fault     control.Fault
	modeTicks int
}

func NewIntake(cfg control.Config, hw IntakeHardware) (*Intake, error) {
	if err := hw.validate(); err != nil {
		return nil, err
	}
	ctrl, err := control.NewAngleController(cfg)
	if err != nil {
		return nil, fmt.Errorf("intake: %w", err)
	}
	return &Intake{
		ctrl:   ctrl,
		hw:     hw,
		logger: log.WithField("mechanism", "intake"),
	}, nil
}

func (i *Intake) Name() string { return "intake" }

// SetSetpoint makes the PID loop seek pos, in rotations.
func (i *Intake) SetSetpoint(pos float64) {
	i.setMode(IntakeTracking)
	i.setpoint = pos
}

// SetAngleSpeed drives the pivot open loop. The soft limits still apply.
func (i *Intake) SetAngleSpeed(speed float64) {
	i.setMode(IntakeManual)
	i.angleSpeed = speed
}

func (i *Intake) RunRollers(speed float64) {
	i.rollerSpeed = hal.Normalize(speed)
}

// StopAll stops the pivot motors and the rollers.
func (i *Intake) StopAll() {
	i.setMode(IntakeStopped)
	i.angleSpeed = 0
	i.rollerSpeed = 0
}

func (i *Intake) setMode(m IntakeMode) {
	if m == i.mode {
		return
	}
	i.logger.WithFields(log.Fields{"from": i.mode, "to": m}).Debug("mode change")
	i.mode = m
	i.modeTicks = 0
	// Integral and derivative history do not carry across modes.
	i.pid = i.pid.Reset()
}

func (i *Intake) Periodic(tick executor.Tick) {
	pos := i.hw.Encoder.Read()
	i.position = pos

	var out control.Output
	fault := control.FaultNone
	switch i.mode {
	case IntakeTracking:
		i.pid, out = i.ctrl.Step(pos, i.setpoint, i.pid)
		fault = i.pid.Fault
	case IntakeManual:
		if !i.ctrl.Config().Sane(pos) {
			fault = control.FaultSensorOutOfRange
		}
		out = i.ctrl.Manual(pos, i.angleSpeed)
	}
	i.reportFault(tick, fault)
	i.out = out
	i.modeTicks++

	if i.mode == IntakeStopped {
		i.hw.LeftAngle.Stop()
		i.hw.RightAngle.Stop()
	} else {
		i.hw.LeftAngle.Set(out.Left)
		i.hw.RightAngle.Set(out.Right)
	}
	if i.rollerSpeed == 0 {
		i.hw.Rollers.Stop()
	} else {
		i.hw.Rollers.Set(i.rollerSpeed)
	}
}

func (i *Intake) reportFault(tick executor.Tick, f control.Fault) {
	if f == i.fault {
		return
	}
	entry := i.logger.WithFields(log.Fields{"tick": tick.Index, "position": i.position})
	if f == control.FaultNone {
		entry.WithField("cleared", i.fault).Info("fault cleared")
	} else {
		entry.WithError(f.Err()).Warn("fault")
	}
	i.fault = f
}

func (i *Intake) Mode() IntakeMode        { return i.mode }
func (i *Intake) Position() float64       { return i.position }
func (i *Intake) Output() control.Output  { return i.out }
func (i *Intake) State() control.PIDState { return i.pid }
func (i *Intake) Fault() control.Fault    { return i.fault }

// Setpoint is the commanded setpoint after soft-limit clamping.
func (i *Intake) Setpoint() float64 {
	if i.mode == IntakeTracking && i.pid.Armed {
		return i.pid.Setpoint
	}
	return i.setpoint
}

// Controller exposes the gains for display.
func (i *Intake) Controller() *control.AngleController { return i.ctrl }

func (i *Intake) Telemetry() telemetry.Snapshot {
	return telemetry.Snapshot{
		Mechanism:  i.Name(),
		Position:   i.position,
		Setpoint:   i.Setpoint(),
		Output:     i.out.Right,
		State:      i.mode.String(),
		Fault:      i.fault.String(),
		StateTicks: i.modeTicks,
		Values: map[string]float64{
			"integral": i.pid.Integral,
			"rollers":  i.rollerSpeed,
		},
	}
}
