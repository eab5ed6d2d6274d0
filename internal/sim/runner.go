package sim

import (
	"context"
	"sync"
	"time"
)

// Runner drives an engine at a fixed tick rate and fans completed frames out
// to subscribers. Pausing the engine keeps the runner alive; ticks are
// simply skipped until a single step is requested or the engine resumes.
type Runner struct {
	engine   *Engine
	interval time.Duration

	mu   sync.Mutex
	subs []func(Frame)
}

// NewRunner returns a runner ticking tickRate times per second. A
// non-positive rate runs as fast as the pipeline allows.
func NewRunner(e *Engine, tickRate float64) *Runner {
	var interval time.Duration
	if tickRate > 0 {
		interval = time.Duration(float64(time.Second) / tickRate)
	}
	return &Runner{engine: e, interval: interval}
}

// Subscribe registers fn to receive every frame the runner produces. fn runs
// on the runner goroutine and must not retain the particle slice.
func (r *Runner) Subscribe(fn func(Frame)) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

// Run blocks until ctx is done or a step fails.
func (r *Runner) Run(ctx context.Context) error {
	if r.interval == 0 {
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if err := r.tick(); err != nil {
				return err
			}
		}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.tick(); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) tick() error {
	stepped, err := r.engine.Step()
	if err != nil {
		return err
	}
	if !stepped {
		if r.interval == 0 {
			time.Sleep(time.Millisecond)
		}
		return nil
	}

	r.mu.Lock()
	subs := r.subs
	r.mu.Unlock()
	if len(subs) == 0 {
		return nil
	}
	r.engine.View(func(f Frame) {
		for _, fn := range subs {
			fn(f)
		}
	})
	return nil
}
