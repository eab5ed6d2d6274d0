package solver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// PBF projects predicted positions onto the constraint ρ_i/ρ0 - 1 = 0.
//
// The neighbour index is built once per tick from the predicted positions
// and reused across iterations. Each iteration is three barriers: density
// and lambda, position delta, then applying the delta.
type PBF struct {
	residuals []float64
}

func NewPBF() *PBF { return &PBF{} }

func (*PBF) Mode() fluid.Mode { return fluid.PBF }

func (s *PBF) Stages() []Stage {
	return []Stage{
		{Name: "predict", Run: s.predict},
		{Name: "neighbours", Run: func(ws *Workspace) error { return ws.buildIndex(true) }},
		{Name: "constraint", Run: s.solve},
		{Name: "integrate", Run: s.finalize},
		{Name: "boundary", Run: applyBoundary},
	}
}

// Residuals returns the mean |C_i| measured at the start of every iteration
// of the last tick. The slice is reused by the next tick.
func (s *PBF) Residuals() []float64 { return s.residuals }

func (s *PBF) predict(ws *Workspace) error {
	dt := ws.Params.Dt
	g := r3.Scale(dt*dt, ws.Params.Gravity)
	return ws.parallel(func(i int) {
		p := &ws.Particles[i]
		p.PredictedPosition = r3.Add(r3.Add(p.Position, r3.Scale(dt, p.Velocity)), g)
		p.Force = r3.Vec{}
		p.Pressure = 0
	})
}

func (s *PBF) solve(ws *Workspace) error {
	s.residuals = s.residuals[:0]
	if ws.Params.Iterations <= 0 {
		// no projection, but keep density current for diagnostics
		return ws.computeDensity(true)
	}
	for iter := 0; iter < ws.Params.Iterations; iter++ {
		if err := s.lambdas(ws); err != nil {
			return err
		}
		s.residuals = append(s.residuals, meanAbsConstraint(ws.Particles, ws.Params.RestDensity))

		if err := s.deltas(ws); err != nil {
			return err
		}
		err := ws.parallel(func(i int) {
			p := &ws.Particles[i]
			p.PredictedPosition = r3.Add(p.PredictedPosition, ws.delta[i])
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// lambdas computes density and the constraint multiplier of every particle
// from the predicted positions.
func (s *PBF) lambdas(ws *Workspace) error {
	if err := ws.computeDensity(true); err != nil {
		return err
	}
	ps := ws.Particles
	k := ws.Kernels
	scale := ws.Params.Mass / ws.Params.RestDensity
	rho0, eps := ws.Params.RestDensity, ws.Params.Relaxation

	return ws.parallel(func(i int) {
		pi := &ps[i]
		c := pi.Density/rho0 - 1

		var gradI r3.Vec
		sum := 0.0
		ws.Index.ForEach(i, func(j int) {
			if j == i {
				return
			}
			g := r3.Scale(scale, k.SpikyGradVec(r3.Sub(pi.PredictedPosition, ps[j].PredictedPosition)))
			gradI = r3.Add(gradI, g)
			sum += r3.Norm2(g)
		})
		sum += r3.Norm2(gradI)
		pi.Lambda = -c / (sum + eps)
	})
}

func (s *PBF) deltas(ws *Workspace) error {
	ps := ws.Particles
	k := ws.Kernels
	scale := ws.Params.Mass / ws.Params.RestDensity

	return ws.parallel(func(i int) {
		pi := &ps[i]
		var dp r3.Vec
		ws.Index.ForEach(i, func(j int) {
			if j == i {
				return
			}
			g := k.SpikyGradVec(r3.Sub(pi.PredictedPosition, ps[j].PredictedPosition))
			dp = r3.Add(dp, r3.Scale(pi.Lambda+ps[j].Lambda, g))
		})
		ws.delta[i] = r3.Scale(scale, dp)
	})
}

func (s *PBF) finalize(ws *Workspace) error {
	inv := 1 / ws.Params.Dt
	return ws.parallel(func(i int) {
		p := &ws.Particles[i]
		p.Velocity = r3.Scale(inv, r3.Sub(p.PredictedPosition, p.Position))
		p.Position = p.PredictedPosition
	})
}

func meanAbsConstraint(ps []fluid.Particle, rho0 float64) float64 {
	if len(ps) == 0 {
		return 0
	}
	sum := 0.0
	for i := range ps {
		sum += math.Abs(ps[i].Density/rho0 - 1)
	}
	return sum / float64(len(ps))
}
