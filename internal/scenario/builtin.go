package scenario

import (
	"fmt"
	"sort"

	"github.com/san-kum/mechctl/internal/config"
)

var builtins = map[string]func(cfg *config.Config) *Scenario{
	"intake-seek": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "seek the configured intake setpoint with rollers running",
			Events: []Event{
				{At: 0, Action: "intake.setpoint", Value: cfg.Intake.Setpoint},
				{At: 0, Action: "intake.rollers", Value: cfg.Intake.RollerSpeed},
			},
		}
	},
	"intake-limit": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "ask for a setpoint past the upper soft limit",
			Events: []Event{
				{At: 0, Action: "intake.setpoint", Value: cfg.Intake.UpperLimit * 2},
			},
		}
	},
	"intake-fault": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "lose the intake encoder mid-move and recover",
			Events: []Event{
				{At: 0, Action: "intake.setpoint", Value: cfg.Intake.Setpoint},
				{At: 40, Action: "fault.intake_encoder"},
				{At: 90, Action: "fault.intake_encoder_clear"},
			},
		}
	},
	"elevate": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "move to the configured elevation, then to each travel bound",
			Ticks:       600,
			Events: []Event{
				{At: 0, Action: "shooter.elevation", Value: cfg.Shooter.Elevation},
				{At: 200, Action: "shooter.elevate_up"},
				{At: 350, Action: "shooter.elevate_down"},
			},
		}
	},
	"load": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "load a note for the amp",
			Ticks:       200,
			Events:      []Event{{At: 0, Action: "shooter.load"}},
		}
	},
	"unload": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "unload a note for the speaker",
			Ticks:       200,
			Events:      []Event{{At: 0, Action: "shooter.unload"}},
		}
	},
	"load-stall": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "load with a jammed note, cancel after a while",
			Ticks:       400,
			Events: []Event{
				{At: 0, Action: "sim.note_stuck", Value: 1},
				{At: 0, Action: "shooter.load"},
				{At: 300, Action: "shooter.cancel_load"},
			},
		}
	},
	"shoot-amp": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "load, then score in the amp at low elevation",
			Ticks:       300,
			Events: []Event{
				{At: 0, Action: "shooter.load"},
				{At: 0, Action: "shooter.elevate_down"},
				{At: 100, Action: "shooter.amp"},
				{At: 250, Action: "shooter.stop_flywheel"},
			},
		}
	},
	"shoot-speaker": func(cfg *config.Config) *Scenario {
		return &Scenario{
			Description: "load, raise, then hand off from intake and fire",
			Ticks:       300,
			Events: []Event{
				{At: 0, Action: "shooter.load"},
				{At: 0, Action: "shooter.elevate_up"},
				{At: 100, Action: "shoot", Value: cfg.Shooter.SpeakerSpeed},
				{At: 250, Action: "stop"},
			},
		}
	},
}

// Builtin returns a named built-in scenario parameterised by cfg.
func Builtin(name string, cfg *config.Config) (*Scenario, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	sc := build(cfg)
	sc.Name = name
	return sc, nil
}

func ListBuiltins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the built-in scenario called name, or loads name as a
// YAML file.
func Resolve(name string, cfg *config.Config) (*Scenario, error) {
	if _, ok := builtins[name]; ok {
		return Builtin(name, cfg)
	}
	return LoadScenario(name)
}
