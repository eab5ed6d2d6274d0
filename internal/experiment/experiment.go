// Package experiment runs a configured scene to completion with a chosen
// set of metrics and parameter overrides.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/sim"
)

type Config struct {
	Scene string
	Base  *config.Config
	// Params are applied with Engine.SetParam before the first tick.
	Params  map[string]float64
	Metrics []string
	// Steps and Seed override Base when non-zero.
	Steps int
	Seed  int64
}

type Experiment struct {
	cfg    Config
	engine *sim.Engine
	steps  int
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup builds the engine. Extra options are passed to sim.New after the
// experiment's own.
func (e *Experiment) Setup(registry *Registry, logger *slog.Logger, opts ...sim.Option) error {
	if e.cfg.Base == nil {
		return fmt.Errorf("experiment %q has no base config", e.cfg.Scene)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := e.cfg.Base.Clone()
	if e.cfg.Steps > 0 {
		cfg.Steps = e.cfg.Steps
	}
	if e.cfg.Seed != 0 {
		cfg.Seed = e.cfg.Seed
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}
	domain, err := cfg.FluidDomain()
	if err != nil {
		return err
	}
	ms, err := registry.Metrics(e.cfg.Metrics, params, domain)
	if err != nil {
		return err
	}

	all := append([]sim.Option{sim.WithLogger(logger), sim.WithMetrics(ms...)}, opts...)
	engine, err := sim.New(cfg, all...)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(e.cfg.Params))
	for name := range e.cfg.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := engine.SetParam(name, e.cfg.Params[name]); err != nil {
			engine.Close()
			return fmt.Errorf("param %s: %w", name, err)
		}
	}

	e.engine = engine
	e.steps = cfg.Steps
	return nil
}

// Run steps the engine for the configured number of ticks and closes it.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.engine == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	defer e.engine.Close()
	return e.engine.Run(ctx, e.steps)
}

// Engine returns the underlying engine for snapshots and observers.
func (e *Experiment) Engine() *sim.Engine {
	return e.engine
}
