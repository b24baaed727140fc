package config

import "sort"

// Presets adjust DefaultConfig for a named setup.
var Presets = map[string]func(*Config){
	// competition runs the robot's own constants.
	"competition": func(c *Config) {},
	"bench": func(c *Config) {
		c.Sim.PivotFreeSpeed = 5
		c.Sim.PivotTau = 0.2
		c.Sim.ActuatorSpeed = 0.1
		c.Sim.FlywheelFreeSpeed = 10
		c.Sim.FlywheelTau = 0.3
		c.Sim.Ticks = 2000
		c.Sim.Realtime = true
		c.Intake.Kp = 0.3
	},
	"aggressive": func(c *Config) {
		c.Intake.Kp = 0.4
		c.Intake.Ki = 0.05
		c.Intake.Kd = 0.01
		c.Intake.OutputMin = -0.5
		c.Intake.OutputMax = 0.5
		c.Shooter.Epsilon = 0.01
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
