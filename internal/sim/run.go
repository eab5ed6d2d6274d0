package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// Run advances the engine by up to steps ticks, feeding metrics and
// observers after each one. It stops early when ctx is cancelled, when the
// engine is paused, or on the first step error.
func (e *Engine) Run(ctx context.Context, steps int) (*Result, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	result := &Result{
		Times:   make([]float64, 0, steps),
		History: make(map[string][]float64, len(e.metrics)),
		Metrics: make(map[string]float64, len(e.metrics)),
	}
	// Metrics only see completed ticks. The frame published by New has
	// not been through the density stage.
	for _, m := range e.metrics {
		m.Reset()
	}

	defer func() {
		for _, m := range e.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
		result.Tick = e.Tick()
		result.Time = e.Time()
		result.Perf = e.Perf()
	}()

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		stepped, err := e.Step()
		if err != nil {
			result.Errors = append(result.Errors, err)
			if errors.Is(err, fluid.ErrClosed) {
				return result, err
			}
			break
		}
		if !stepped {
			e.logger.Debug("run stopped, engine paused", "tick", e.Tick())
			break
		}
		result.StepsTaken++

		e.View(func(f Frame) {
			result.Times = append(result.Times, f.Time)
			for _, m := range e.metrics {
				m.Observe(f.Particles, f.Time)
				result.History[m.Name()] = append(result.History[m.Name()], m.Value())
			}
			for _, obs := range e.observers {
				obs.OnStep(f)
			}
		})
	}
	return result, nil
}
