package tune

import (
	"context"
	"fmt"

	"github.com/san-kum/mechctl/internal/config"
	"github.com/san-kum/mechctl/internal/scenario"
)

// Gain parameter names understood by IntakeGains.
const (
	ParamKp = "kp"
	ParamKi = "ki"
	ParamKd = "kd"
)

// IntakeGains evaluates intake PID gains by running sc on a fresh bench
// built from base. Parameters not present keep the base value.
func IntakeGains(base *config.Config, sc *scenario.Scenario) Evaluate {
	return func(ctx context.Context, params map[string]float64) (map[string]float64, error) {
		cfg := base.Clone()
		if v, ok := params[ParamKp]; ok {
			cfg.Intake.Kp = v
		}
		if v, ok := params[ParamKi]; ok {
			cfg.Intake.Ki = v
		}
		if v, ok := params[ParamKd]; ok {
			cfg.Intake.Kd = v
		}
		cfg.Sim.Realtime = false

		bench, err := scenario.NewBench(cfg)
		if err != nil {
			return nil, fmt.Errorf("gains %v: %w", params, err)
		}
		res, err := bench.Run(ctx, sc)
		if err != nil {
			return nil, err
		}
		return res.Metrics, nil
	}
}
