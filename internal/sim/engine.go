// Package sim is the step orchestrator: it owns the particle store and the
// per-tick workspace, runs the solver stages in order, and publishes each
// completed tick to readers.
//
// The engine has two run states. While running, every Step executes one
// full pipeline pass. While paused, Step does nothing unless a single step
// was requested, in which case exactly one pass runs and the engine stays
// paused.
package sim

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/solver"
	"github.com/san-kum/fluidsim/internal/spatial"
	"github.com/san-kum/fluidsim/internal/spawn"
	"github.com/san-kum/fluidsim/internal/telemetry"
)

type options struct {
	logger         *slog.Logger
	backend        compute.Backend
	particles      []fluid.Particle
	metrics        []metrics.Metric
	defaultMetrics bool
	observers      []Observer
	perfWindow     int
	paused         bool
}

// Option configures an Engine.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackend runs the pipeline on b. The caller keeps ownership of b.
func WithBackend(b compute.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithParticles replaces the configured spawn with ps. The particle count
// becomes len(ps).
func WithParticles(ps []fluid.Particle) Option {
	return func(o *options) { o.particles = ps }
}

func WithMetrics(ms ...metrics.Metric) Option {
	return func(o *options) { o.metrics = append(o.metrics, ms...) }
}

// WithDefaultMetrics adds metrics.Defaults for the engine's scene.
func WithDefaultMetrics() Option {
	return func(o *options) { o.defaultMetrics = true }
}

func WithObservers(obs ...Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs...) }
}

func WithPerfWindow(n int) Option {
	return func(o *options) { o.perfWindow = n }
}

// StartPaused builds the engine in the paused state.
func StartPaused() Option {
	return func(o *options) { o.paused = true }
}

// Engine is the step orchestrator.
type Engine struct {
	// mu serializes ticks with parameter changes and Close.
	mu          sync.Mutex
	cfg         *config.Config
	store       *fluid.Store
	ws          *solver.Workspace
	solver      solver.Solver
	backend     compute.Backend
	ownsBackend bool
	baseDt      float64
	tick        uint64
	time        float64

	paused        atomic.Bool
	stepRequested atomic.Bool
	closed        atomic.Bool

	frameMu sync.RWMutex
	frame   Frame
	back    []fluid.Particle

	perf      *telemetry.PerfCollector
	logger    *slog.Logger
	metrics   []metrics.Metric
	observers []Observer
}

// New validates cfg and builds the store, neighbour index, solver and
// backend for one simulation.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	o := options{logger: slog.Default(), perfWindow: 60}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.Clone()
	if o.particles != nil {
		cfg.ParticleCount = len(o.particles)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	domain, err := cfg.FluidDomain()
	if err != nil {
		return nil, err
	}

	ps := o.particles
	if ps == nil {
		spawnOpts, err := cfg.SpawnOptions()
		if err != nil {
			return nil, err
		}
		if ps, err = spawn.Generate(spawnOpts); err != nil {
			return nil, fmt.Errorf("spawn: %w", err)
		}
	}

	e := &Engine{
		cfg:       cfg,
		store:     fluid.NewStore(ps),
		baseDt:    params.Dt,
		perf:      telemetry.NewPerfCollector(o.perfWindow),
		logger:    o.logger,
		metrics:   o.metrics,
		observers: o.observers,
		backend:   o.backend,
	}
	if e.backend == nil {
		if e.backend, err = compute.New(cfg.Backend, cfg.Workers); err != nil {
			return nil, fluid.InvalidConfig("backend", "%v", err)
		}
		e.ownsBackend = true
	}

	index, err := spatial.New(cfg.Index, params.SmoothingRadius, domain.Box(), cfg.PadSort, e.backend)
	if err != nil {
		e.release()
		return nil, err
	}
	if sg, ok := index.(*spatial.SortedGrid); ok {
		if err := sg.CheckCount(len(ps)); err != nil {
			e.release()
			return nil, err
		}
		sg.Stage = e.perf.StartPhase
	}

	if e.solver, err = solver.New(params.Mode); err != nil {
		e.release()
		return nil, err
	}
	e.ws = solver.NewWorkspace(e.store.Particles(), params, domain, index, e.backend)
	e.ws.Phase = e.perf.StartPhase

	if o.defaultMetrics {
		e.metrics = append(e.metrics, metrics.Defaults(params, domain)...)
	}
	e.paused.Store(o.paused)
	e.publish()

	e.logger.Info("engine ready",
		"mode", params.Mode,
		"index", index.Name(),
		"backend", e.backend.Name(),
		"workers", e.backend.Workers(),
		"particles", len(ps),
		"domain", domain.String(),
	)
	return e, nil
}

// Step advances the simulation by one tick when running, or when paused
// with a pending single-step request. It reports whether a tick ran.
// A tick is never interrupted once started.
func (e *Engine) Step() (bool, error) {
	if e.closed.Load() {
		return false, fluid.ErrClosed
	}
	if e.paused.Load() && !e.stepRequested.CompareAndSwap(true, false) {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		return false, fluid.ErrClosed
	}
	return true, e.tickLocked()
}

func (e *Engine) tickLocked() error {
	e.perf.StartTick()
	if err := solver.Run(e.solver, e.ws); err != nil {
		e.perf.EndTick()
		return &fluid.StepError{Tick: e.tick + 1, Time: e.time, Wrapped: err}
	}
	e.tick++
	e.time += e.ws.Params.Dt

	e.perf.StartPhase(telemetry.PhasePublish)
	e.publish()
	e.perf.EndTick()

	if e.cfg.ValidateState {
		if err := e.store.Validate(); err != nil {
			e.logger.Error("invalid particle state", "tick", e.tick, "err", err)
			return &fluid.StepError{Tick: e.tick, Time: e.time, Wrapped: err}
		}
	}
	return nil
}

// publish copies the store into the back buffer and swaps it to the front.
func (e *Engine) publish() {
	e.back = e.store.CopyTo(e.back)

	e.frameMu.Lock()
	prev := e.frame.Particles
	e.frame = Frame{Tick: e.tick, Time: e.time, Particles: e.back}
	e.frameMu.Unlock()

	e.back = prev
}

// SetPaused switches between running and paused. Resuming drops any
// pending single-step request and restores the configured time step.
func (e *Engine) SetPaused(p bool) {
	was := e.paused.Swap(p)
	if p == was {
		return
	}
	if !p {
		e.stepRequested.Store(false)
		e.mu.Lock()
		e.ws.Params.Dt = e.baseDt
		e.mu.Unlock()
	}
	e.logger.Debug("run state changed", "paused", p, "tick", e.Tick())
}

func (e *Engine) Paused() bool { return e.paused.Load() }

// RequestSingleStep arms exactly one pipeline pass for the next Step.
// Repeated requests before that Step collapse into one.
func (e *Engine) RequestSingleStep() error {
	if !e.paused.Load() {
		e.logger.Warn("single step ignored while running")
		return fluid.ErrNotPaused
	}
	e.stepRequested.Store(true)
	e.logger.Debug("single step requested", "tick", e.Tick())
	return nil
}

// AdjustTimestep adds delta to the current time step and returns the new
// value. The change lasts until the engine is resumed from pause.
func (e *Engine) AdjustTimestep(delta float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.ws.Params.Dt + delta
	if !(next > 0) {
		return e.ws.Params.Dt, fluid.InvalidConfig("dt", "must stay > 0, got %g", next)
	}
	e.ws.Params.Dt = next
	return next, nil
}

// SetParam changes a physics parameter between ticks. Setting "dt" also
// moves the time step restored on resume.
func (e *Engine) SetParam(name string, v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ws.Params.SetParam(name, v); err != nil {
		return err
	}
	if name == "dt" {
		e.baseDt = v
	}
	e.logger.Debug("param set", "name", name, "value", v)
	return nil
}

func (e *Engine) GetParams() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.Params.GetParams()
}

// Params returns a copy of the current physics parameters.
func (e *Engine) Params() fluid.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.Params
}

func (e *Engine) Domain() fluid.Domain { return e.ws.Domain }

func (e *Engine) Config() *config.Config { return e.cfg.Clone() }

func (e *Engine) Len() int { return e.store.Len() }

// Workers is the parallelism of the compute backend.
func (e *Engine) Workers() int { return e.backend.Workers() }

// Residuals returns the PBF constraint residual per iteration of the last
// tick, or nil in SPH mode.
func (e *Engine) Residuals() []float64 {
	pbf, ok := e.solver.(*solver.PBF)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), pbf.Residuals()...)
}

// Snapshot returns a copy of the last completed tick.
func (e *Engine) Snapshot() Frame {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	return e.frame.Clone()
}

// View calls fn with the last completed tick without copying. fn must not
// retain or modify the particles and must not call back into the engine.
func (e *Engine) View(fn func(Frame)) {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	fn(e.frame)
}

func (e *Engine) Tick() uint64 {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	return e.frame.Tick
}

func (e *Engine) Time() float64 {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	return e.frame.Time
}

func (e *Engine) Perf() telemetry.PerfStats { return e.perf.Stats() }

// Close releases the backend. Further calls to Step fail with ErrClosed.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release()
	e.logger.Debug("engine closed", "tick", e.tick)
	return nil
}

func (e *Engine) release() {
	if e.ownsBackend && e.backend != nil {
		e.backend.Cleanup()
	}
}
