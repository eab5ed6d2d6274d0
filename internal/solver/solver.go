// Package solver implements the per-tick physics passes: density and
// pressure, SPH forces, the PBF density constraint, integration and
// boundary handling.
//
// A Solver is a fixed list of stages. The step orchestrator runs them in
// order; every stage is one or more Dispatch calls on the workspace backend
// and therefore ends with a barrier. Both solvers share the neighbour index
// held by the Workspace.
package solver

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/kernels"
	"github.com/san-kum/fluidsim/internal/spatial"
)

// Stage is one barrier-separated pass of the pipeline.
type Stage struct {
	Name string
	Run  func(ws *Workspace) error
}

// Solver is the mode-specific part of the pipeline.
type Solver interface {
	Mode() fluid.Mode
	Stages() []Stage
}

// New returns the solver for mode.
func New(mode fluid.Mode) (Solver, error) {
	switch mode {
	case fluid.SPH:
		return NewSPH(), nil
	case fluid.PBF:
		return NewPBF(), nil
	}
	return nil, fmt.Errorf("%w: %v", fluid.ErrUnknownMode, mode)
}

// Workspace is everything a tick reads and writes. It is owned by the step
// orchestrator; nothing in it may be retained across ticks except the
// particle slice, which belongs to the store.
type Workspace struct {
	Particles []fluid.Particle
	Params    fluid.Params
	Domain    fluid.Domain
	Kernels   kernels.Set
	Index     spatial.Index
	Backend   compute.Backend

	// Phase, when set, is told the name of every sub-stage before it runs.
	Phase func(name string)

	points []r3.Vec
	delta  []r3.Vec
}

// NewWorkspace binds the buffers for one engine instance.
func NewWorkspace(ps []fluid.Particle, params fluid.Params, domain fluid.Domain, index spatial.Index, backend compute.Backend) *Workspace {
	if backend == nil {
		backend = compute.NewSerialBackend()
	}
	return &Workspace{
		Particles: ps,
		Params:    params,
		Domain:    domain,
		Kernels:   kernels.New(params.SmoothingRadius),
		Index:     index,
		Backend:   backend,
		points:    make([]r3.Vec, len(ps)),
		delta:     make([]r3.Vec, len(ps)),
	}
}

func (ws *Workspace) phase(name string) {
	if ws.Phase != nil {
		ws.Phase(name)
	}
}

// Run executes every stage of s in order.
func Run(s Solver, ws *Workspace) error {
	for _, st := range s.Stages() {
		ws.phase(st.Name)
		if err := st.Run(ws); err != nil {
			return fmt.Errorf("%s: %w", st.Name, err)
		}
	}
	return nil
}

// parallel runs fn for every particle index on the workspace backend.
func (ws *Workspace) parallel(fn func(i int)) error {
	return ws.Backend.Dispatch(len(ws.Particles), func(start, end int) error {
		for i := start; i < end; i++ {
			fn(i)
		}
		return nil
	})
}

// buildIndex rebuilds the neighbour index from current or predicted positions.
func (ws *Workspace) buildIndex(predicted bool) error {
	err := ws.parallel(func(i int) {
		if predicted {
			ws.points[i] = ws.Particles[i].PredictedPosition
		} else {
			ws.points[i] = ws.Particles[i].Position
		}
	})
	if err != nil {
		return err
	}
	return ws.Index.Build(ws.points)
}

// computeDensity fills Density for every particle. The self term is always
// included, so density is strictly positive.
func (ws *Workspace) computeDensity(predicted bool) error {
	ps := ws.Particles
	k := ws.Kernels
	m := ws.Params.Mass
	return ws.parallel(func(i int) {
		pi := pos(&ps[i], predicted)
		rho := 0.0
		ws.Index.ForEach(i, func(j int) {
			rho += m * k.Poly6(r3.Norm2(r3.Sub(pi, pos(&ps[j], predicted))))
		})
		ps[i].Density = rho
	})
}

func pos(p *fluid.Particle, predicted bool) r3.Vec {
	if predicted {
		return p.PredictedPosition
	}
	return p.Position
}
