// Package tune searches controller gains against a simulated scenario.
package tune

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Evaluate runs one candidate and returns the metrics of the run.
type Evaluate func(ctx context.Context, params map[string]float64) (map[string]float64, error)

type Candidate struct {
	Params map[string]float64
	Score  float64
	Err    error
}

// GridSearch tries every combination of the given parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.NumCPU()}
}

// SetWorkers bounds how many candidates run at once.
func (g *GridSearch) SetWorkers(n int) {
	if n > 0 {
		g.workers = n
	}
}

func (g *GridSearch) combinations() []map[string]float64 {
	out := []map[string]float64{{}}
	for i, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(out)*len(g.ranges[i]))
		for _, base := range out {
			for _, v := range g.ranges[i] {
				params := make(map[string]float64, len(base)+1)
				for k, bv := range base {
					params[k] = bv
				}
				params[name] = v
				next = append(next, params)
			}
		}
		out = next
	}
	return out
}

// Search evaluates every combination and returns the one with the lowest
// score. Candidates that fail or score non-finite are kept in the returned
// list but never win.
func (g *GridSearch) Search(ctx context.Context, eval Evaluate, score Score) (Candidate, []Candidate, error) {
	if len(g.paramNames) != len(g.ranges) {
		return Candidate{}, nil, fmt.Errorf("tune: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	combos := g.combinations()
	if len(combos) == 0 {
		return Candidate{}, nil, fmt.Errorf("tune: empty search space")
	}
	results := make([]Candidate, len(combos))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.workers)

	var mu sync.Mutex
	done := 0
	for i, params := range combos {
		i, params := i, params
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := Candidate{Params: params, Score: math.Inf(1)}
			metrics, err := eval(ctx, params)
			if err == nil {
				var v float64
				v, err = score(metrics)
				if err == nil && !isFinite(v) {
					err = fmt.Errorf("tune: score %v not finite", v)
				}
				if err == nil {
					c.Score = v
				}
			}
			c.Err = err
			results[i] = c

			mu.Lock()
			done++
			log.WithFields(log.Fields{"done": done, "of": len(combos), "score": c.Score}).Debug("candidate evaluated")
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return Candidate{}, nil, err
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score < results[b].Score })
	best := results[0]
	if best.Err != nil {
		return Candidate{}, results, fmt.Errorf("tune: no candidate succeeded: %w", best.Err)
	}
	return best, results, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
