package sim

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/metrics"
)

// Ensemble runs independent copies of a scene that differ only in their
// spawn seed.
type Ensemble struct {
	base      *config.Config
	numRuns   int
	seedStart int64
	parallel  int
	logger    *slog.Logger
}

// NewEnsemble prepares numRuns runs of cfg seeded from seedStart upwards.
// At most parallel runs execute at once; zero means one at a time.
func NewEnsemble(cfg *config.Config, numRuns int, seedStart int64, parallel int) *Ensemble {
	if parallel < 1 {
		parallel = 1
	}
	return &Ensemble{
		base:      cfg.Clone(),
		numRuns:   numRuns,
		seedStart: seedStart,
		parallel:  parallel,
		logger:    slog.Default(),
	}
}

func (e *Ensemble) WithLogger(l *slog.Logger) *Ensemble {
	e.logger = l
	return e
}

// Run executes every member for cfg.Steps ticks with the default metrics
// and returns results in seed order.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for i := 0; i < e.numRuns; i++ {
		i := i
		g.Go(func() error {
			cfg := e.base.Clone()
			cfg.Seed = e.seedStart + int64(i)

			params, err := cfg.Params()
			if err != nil {
				return err
			}
			domain, err := cfg.FluidDomain()
			if err != nil {
				return err
			}
			eng, err := New(cfg,
				WithLogger(e.logger.With("member", i)),
				WithMetrics(metrics.Defaults(params, domain)...),
			)
			if err != nil {
				return err
			}
			defer eng.Close()

			results[i], err = eng.Run(ctx, cfg.Steps)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
