// Package optim searches parameter grids for the setting that minimizes a
// run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/fluidsim/internal/experiment"
)

// ErrNoCandidate indicates every grid point failed to run.
var ErrNoCandidate = errors.New("optim: no grid point completed")

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	failures   int
}

// NewGridSearch searches the cartesian product of ranges, one range per
// parameter name.
func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Failures is the number of grid points skipped by the last Search because
// their experiment could not be built or run.
func (g *GridSearch) Failures() int { return g.failures }

// Search runs buildExperiment at every grid point and returns the point
// with the smallest value of metricName. NaN values never win.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("optim: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	g.failures = 0

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, metricName, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		exp, err := buildExperiment(current)
		if err != nil {
			g.failures++
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil || len(result.Errors) > 0 {
			g.failures++
			return nil
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("optim: metric %q not recorded", metricName)
		}
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, next, buildExperiment, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
