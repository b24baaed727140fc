package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mechctl/internal/executor"
)

var ErrUnknownAction = errors.New("scenario: unknown action")

// Scenario is a scripted sequence of commands issued at fixed ticks.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Ticks       int     `yaml:"ticks"`
	Events      []Event `yaml:"events"`
}

// Event issues Action at tick At, counted from the start of the scenario.
type Event struct {
	At     int     `yaml:"at"`
	Action string  `yaml:"action"`
	Value  float64 `yaml:"value,omitempty"`
}

func (s *Scenario) Validate() error {
	if s.Ticks < 0 {
		return fmt.Errorf("scenario %s: ticks must be non-negative", s.Name)
	}
	for i, ev := range s.Events {
		if ev.At < 0 {
			return fmt.Errorf("scenario %s: event %d scheduled before start", s.Name, i)
		}
		if _, ok := actions[ev.Action]; !ok {
			return fmt.Errorf("%w: %q (event %d of %s)", ErrUnknownAction, ev.Action, i, s.Name)
		}
	}
	return nil
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

type action func(b *Bench, v float64)

var actions = map[string]action{
	"intake.setpoint":    func(b *Bench, v float64) { b.Intake.SetSetpoint(v) },
	"intake.angle_speed": func(b *Bench, v float64) { b.Intake.SetAngleSpeed(v) },
	"intake.rollers":     func(b *Bench, v float64) { b.Intake.RunRollers(v) },
	"intake.stop":        func(b *Bench, _ float64) { b.Intake.StopAll() },

	"shooter.flywheel":       func(b *Bench, v float64) { b.Shooter.RunFlywheel(v) },
	"shooter.stop_flywheel":  func(b *Bench, _ float64) { b.Shooter.StopFlywheel() },
	"shooter.amp":            func(b *Bench, _ float64) { b.Shooter.ScoreInAmp() },
	"shooter.speaker":        func(b *Bench, _ float64) { b.Shooter.ScoreInSpeaker() },
	"shooter.elevation":      func(b *Bench, v float64) { b.Shooter.SetElevation(v) },
	"shooter.elevate_up":     func(b *Bench, _ float64) { b.Shooter.ElevateUp() },
	"shooter.elevate_down":   func(b *Bench, _ float64) { b.Shooter.ElevateDown() },
	"shooter.raise":          func(b *Bench, _ float64) { b.Shooter.Raise() },
	"shooter.lower":          func(b *Bench, _ float64) { b.Shooter.Lower() },
	"shooter.stop_elevation": func(b *Bench, _ float64) { b.Shooter.StopElevation() },
	"shooter.load":           func(b *Bench, _ float64) { b.Shooter.LoadNoteForAmp() },
	"shooter.unload":         func(b *Bench, _ float64) { b.Shooter.UnloadNoteForSpeaker() },
	"shooter.cancel_load":    func(b *Bench, _ float64) { b.Shooter.CancelLoad() },

	"shoot": func(b *Bench, v float64) { b.Joint.Shoot(v) },
	"stop":  func(b *Bench, _ float64) { b.Joint.Stop() },

	// Fault injection on the simulated plant. A zero value reads as NaN.
	"fault.intake_encoder":         func(b *Bench, v float64) { b.Pivot.FailEncoder(faultValue(v)) },
	"fault.intake_encoder_clear":   func(b *Bench, _ float64) { b.Pivot.RestoreEncoder() },
	"fault.elevation_sensor":       func(b *Bench, v float64) { b.Right.FailSensor(faultValue(v)) },
	"fault.elevation_sensor_clear": func(b *Bench, _ float64) { b.Right.RestoreSensor() },
	"sim.note_stuck":               func(b *Bench, v float64) { b.Feed.Stuck = v != 0 },
	"sim.insert_note":              func(b *Bench, _ float64) { b.Feed.Insert() },
}

func faultValue(v float64) float64 {
	if v == 0 {
		return math.NaN()
	}
	return v
}

// Actions lists the action names a scenario may use.
func Actions() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// script issues a loaded scenario's events as the first mechanism of each
// tick.
type script struct {
	bench  *Bench
	name   string
	base   int
	events []Event
	next   int
}

func newScript() *script { return &script{} }

func (s *script) Name() string { return "script" }

func (s *script) load(b *Bench, sc *Scenario, base int) {
	events := append([]Event(nil), sc.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })
	*s = script{bench: b, name: sc.Name, base: base, events: events}
}

func (s *script) Periodic(tick executor.Tick) {
	at := tick.Index - s.base
	for s.next < len(s.events) && s.events[s.next].At <= at {
		ev := s.events[s.next]
		log.WithFields(log.Fields{
			"scenario": s.name,
			"tick":     tick.Index,
			"action":   ev.Action,
			"value":    ev.Value,
		}).Debug("event")
		actions[ev.Action](s.bench, ev.Value)
		s.next++
	}
}
