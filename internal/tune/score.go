package tune

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// Score reduces the metrics of one run to a single value. Lower is better.
type Score func(metrics map[string]float64) (float64, error)

// Metric scores a run by one named metric.
func Metric(name string) Score {
	return func(metrics map[string]float64) (float64, error) {
		v, ok := metrics[name]
		if !ok {
			return 0, fmt.Errorf("tune: no metric %s", name)
		}
		return v, nil
	}
}

// Expression scores a run with an arithmetic formula over its metrics.
// Metric names contain dots, so they are written in brackets:
//
//	[intake.tracking_error] + 0.5 * [intake.output_spread]
func Expression(expr string) (Score, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("tune: parse %q: %w", expr, err)
	}
	return func(metrics map[string]float64) (float64, error) {
		params := make(map[string]interface{}, len(metrics))
		for k, v := range metrics {
			params[k] = v
		}
		out, err := e.Evaluate(params)
		if err != nil {
			return 0, fmt.Errorf("tune: evaluate %q: %w", expr, err)
		}
		v, ok := out.(float64)
		if !ok {
			return 0, fmt.Errorf("tune: %q is not numeric (got %T)", expr, out)
		}
		return v, nil
	}, nil
}

// ParseScore treats s as an expression when it contains brackets or
// operators, and as a metric name otherwise.
func ParseScore(s string) (Score, error) {
	for _, r := range s {
		switch r {
		case '[', '+', '-', '*', '/', '(', ' ':
			return Expression(s)
		}
	}
	return Metric(s), nil
}
