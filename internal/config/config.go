package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mechctl/internal/control"
	"github.com/san-kum/mechctl/internal/mechanism"
)

const (
	DefaultPeriod       = 0.02
	DefaultTicks        = 500
	DefaultKp           = 0.1
	DefaultSafeOutput   = 0.2
	DefaultUpperLimit   = 10.0
	DefaultLowerLimit   = 0.0
	DefaultUpperTravel  = 0.75
	DefaultLowerTravel  = 0.1
	DefaultFeedSpeed    = 0.5
	DefaultAmpSpeed     = 0.5
	DefaultSpeakerSpeed = 1.0
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	// Period is the control tick in seconds.
	Period    float64         `yaml:"period"`
	Intake    IntakeConfig    `yaml:"intake"`
	Shooter   ShooterConfig   `yaml:"shooter"`
	Sim       SimConfig       `yaml:"sim"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Hardware  HardwareConfig  `yaml:"hardware"`
}

type IntakeConfig struct {
	Kp         float64 `yaml:"kp"`
	Ki         float64 `yaml:"ki"`
	Kd         float64 `yaml:"kd"`
	UpperLimit float64 `yaml:"upper_limit"`
	LowerLimit float64 `yaml:"lower_limit"`
	OutputMin  float64 `yaml:"output_min"`
	OutputMax  float64 `yaml:"output_max"`
	SaneMin    float64 `yaml:"sane_min"`
	SaneMax    float64 `yaml:"sane_max"`
	// Setpoint is the rotation count scenarios seek by default.
	Setpoint    float64 `yaml:"setpoint"`
	RollerSpeed float64 `yaml:"roller_speed"`
}

type ShooterConfig struct {
	UpperTravel  float64 `yaml:"upper_travel"`
	LowerTravel  float64 `yaml:"lower_travel"`
	Epsilon      float64 `yaml:"epsilon"`
	Speed        float64 `yaml:"speed"`
	Tolerance    float64 `yaml:"tolerance"`
	FeedSpeed    float64 `yaml:"feed_speed"`
	AmpSpeed     float64 `yaml:"amp_speed"`
	SpeakerSpeed float64 `yaml:"speaker_speed"`
	// Elevation is the default target fraction for scenarios.
	Elevation float64 `yaml:"elevation"`
}

// SimConfig describes the simulated plant the bench runs against.
type SimConfig struct {
	Ticks             int     `yaml:"ticks"`
	Realtime          bool    `yaml:"realtime"`
	PivotStart        float64 `yaml:"pivot_start"`
	PivotFreeSpeed    float64 `yaml:"pivot_free_speed"`
	PivotTau          float64 `yaml:"pivot_tau"`
	PivotMin          float64 `yaml:"pivot_min"`
	PivotMax          float64 `yaml:"pivot_max"`
	ActuatorStart     float64 `yaml:"actuator_start"`
	ActuatorSpeed     float64 `yaml:"actuator_speed"`
	FlywheelFreeSpeed float64 `yaml:"flywheel_free_speed"`
	FlywheelTau       float64 `yaml:"flywheel_tau"`
	NoteThreshold     float64 `yaml:"note_threshold"`
	NoteLength        float64 `yaml:"note_length"`
}

type TelemetryConfig struct {
	Namespace string `yaml:"namespace"`
	Listen    string `yaml:"listen"`
	StoreDir  string `yaml:"store_dir"`
	LogLevel  string `yaml:"log_level"`
}

// HardwareConfig maps bench GPIO. When Enabled, the note detector is read
// from a real beam break instead of the simulated feed.
type HardwareConfig struct {
	Enabled         bool `yaml:"enabled"`
	NoteDetectorPin int  `yaml:"note_detector_pin"`
	ActiveLow       bool `yaml:"active_low"`
	FlywheelPin     int  `yaml:"flywheel_pin"`
}

func DefaultConfig() *Config {
	return &Config{
		Period: DefaultPeriod,
		Intake: IntakeConfig{
			Kp:          DefaultKp,
			UpperLimit:  DefaultUpperLimit,
			LowerLimit:  DefaultLowerLimit,
			OutputMin:   -DefaultSafeOutput,
			OutputMax:   DefaultSafeOutput,
			SaneMin:     -5,
			SaneMax:     15,
			Setpoint:    5,
			RollerSpeed: 0.8,
		},
		Shooter: ShooterConfig{
			UpperTravel:  DefaultUpperTravel,
			LowerTravel:  DefaultLowerTravel,
			Epsilon:      0.02,
			Speed:        1,
			Tolerance:    0.05,
			FeedSpeed:    DefaultFeedSpeed,
			AmpSpeed:     DefaultAmpSpeed,
			SpeakerSpeed: DefaultSpeakerSpeed,
			Elevation:    0.6,
		},
		Sim: SimConfig{
			Ticks:             DefaultTicks,
			PivotFreeSpeed:    20,
			PivotTau:          0.05,
			PivotMin:          -2,
			PivotMax:          12,
			ActuatorStart:     0.2,
			ActuatorSpeed:     0.5,
			FlywheelFreeSpeed: 40,
			FlywheelTau:       0.1,
			NoteThreshold:     2,
			NoteLength:        4,
		},
		Telemetry: TelemetryConfig{
			Namespace: "mechctl",
			Listen:    ":9100",
			StoreDir:  "./runs",
			LogLevel:  "info",
		},
		Hardware: HardwareConfig{
			NoteDetectorPin: 17,
			ActiveLow:       true,
			FlywheelPin:     18,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every section, including the controller configs derived
// from it.
func (c *Config) Validate() error {
	if err := c.AngleConfig().Validate(); err != nil {
		return fmt.Errorf("%w: intake: %v", ErrInvalid, err)
	}
	if err := c.MechanismShooterConfig().Validate(); err != nil {
		return fmt.Errorf("%w: shooter: %v", ErrInvalid, err)
	}
	s := c.Sim
	switch {
	case s.Ticks < 0:
		return fmt.Errorf("%w: sim: ticks must be non-negative", ErrInvalid)
	case !(s.PivotMax > s.PivotMin):
		return fmt.Errorf("%w: sim: pivot hard stops out of order", ErrInvalid)
	case s.PivotStart < s.PivotMin || s.PivotStart > s.PivotMax:
		return fmt.Errorf("%w: sim: pivot start outside hard stops", ErrInvalid)
	case s.ActuatorStart < 0 || s.ActuatorStart > 1:
		return fmt.Errorf("%w: sim: actuator start must be a fraction", ErrInvalid)
	case s.PivotFreeSpeed <= 0 || s.ActuatorSpeed <= 0 || s.FlywheelFreeSpeed <= 0:
		return fmt.Errorf("%w: sim: plant speeds must be positive", ErrInvalid)
	case s.NoteThreshold <= 0 || s.NoteLength <= 0:
		return fmt.Errorf("%w: sim: note geometry must be positive", ErrInvalid)
	}
	return nil
}

// PeriodDuration is the control tick as a duration.
func (c *Config) PeriodDuration() time.Duration {
	return time.Duration(c.Period * float64(time.Second))
}

// AngleConfig is the intake pivot controller configuration.
func (c *Config) AngleConfig() control.Config {
	i := c.Intake
	return control.Config{
		Kp:        i.Kp,
		Ki:        i.Ki,
		Kd:        i.Kd,
		Period:    c.Period,
		Upper:     i.UpperLimit,
		Lower:     i.LowerLimit,
		OutputMin: i.OutputMin,
		OutputMax: i.OutputMax,
		SaneMin:   i.SaneMin,
		SaneMax:   i.SaneMax,
	}
}

// MechanismShooterConfig is the shooter's elevation, loader and scoring
// configuration.
func (c *Config) MechanismShooterConfig() mechanism.ShooterConfig {
	s := c.Shooter
	return mechanism.ShooterConfig{
		Elevation: control.ElevationConfig{
			UpperTravel: s.UpperTravel,
			LowerTravel: s.LowerTravel,
			Epsilon:     s.Epsilon,
			Speed:       s.Speed,
			Tolerance:   s.Tolerance,
		},
		Load:         control.LoadConfig{FeedSpeed: s.FeedSpeed},
		AmpSpeed:     s.AmpSpeed,
		SpeakerSpeed: s.SpeakerSpeed,
	}
}

// Clone returns a copy. Config holds only values.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
