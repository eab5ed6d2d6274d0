package solver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/kernels"
)

// SPH integrates pressure, viscosity and gravity forces with semi-implicit
// Euler.
//
// Forces are per unit volume: the pairwise terms divide by the neighbour's
// density, gravity is scaled by the particle's own density, and the
// integrator divides the total by that same density. The pressure term uses
// the mean of both pressures, so F_ij = -F_ji whenever ρ_i = ρ_j.
type SPH struct{}

func NewSPH() *SPH { return &SPH{} }

func (*SPH) Mode() fluid.Mode { return fluid.SPH }

func (s *SPH) Stages() []Stage {
	return []Stage{
		{Name: "neighbours", Run: func(ws *Workspace) error { return ws.buildIndex(false) }},
		{Name: "density", Run: s.densityPressure},
		{Name: "force", Run: s.forces},
		{Name: "integrate", Run: s.integrate},
		{Name: "boundary", Run: applyBoundary},
	}
}

func (s *SPH) densityPressure(ws *Workspace) error {
	if err := ws.computeDensity(false); err != nil {
		return err
	}
	k, rho0 := ws.Params.Stiffness, ws.Params.RestDensity
	return ws.parallel(func(i int) {
		p := &ws.Particles[i]
		p.Pressure = k * (p.Density - rho0)
	})
}

func (s *SPH) forces(ws *Workspace) error {
	ps := ws.Particles
	prm := ws.Params
	kern := ws.Kernels
	return ws.parallel(func(i int) {
		pi := &ps[i]
		f := r3.Scale(pi.Density, prm.Gravity)
		ws.Index.ForEach(i, func(j int) {
			if j == i {
				return
			}
			f = r3.Add(f, pairForce(pi, &ps[j], prm, kern))
		})
		if ws.Domain.Walls == fluid.WallPenalty {
			f = r3.Add(f, r3.Scale(pi.Density, wallForce(pi.Position, ws.Domain.Extents, prm)))
		}
		pi.Force = f
	})
}

// pairForce is the pressure plus viscosity force exerted by b on a. Pairs
// outside the support, coincident pairs and zero-density neighbours
// contribute nothing.
func pairForce(a, b *fluid.Particle, prm fluid.Params, kern kernels.Set) r3.Vec {
	d := r3.Sub(a.Position, b.Position)
	r2 := r3.Norm2(d)
	if r2 >= kern.H2 || b.Density == 0 {
		return r3.Vec{}
	}
	r := math.Sqrt(r2)
	if r < kernels.MinDistance {
		return r3.Vec{}
	}

	fp := -prm.Mass * (a.Pressure + b.Pressure) / (2 * b.Density) * kern.SpikyGrad(r)
	f := r3.Scale(fp/r, d)

	fv := prm.Viscosity * prm.Mass / b.Density * kern.ViscLaplacian(r)
	return r3.Add(f, r3.Scale(fv, r3.Sub(b.Velocity, a.Velocity)))
}

// wallForce is the penalty acceleration pushing p back inside the box. It
// only acts on the part of the particle beyond the wall.
func wallForce(p, ext r3.Vec, prm fluid.Params) r3.Vec {
	k := prm.WallStiffness
	lim := r3.Sub(ext, r3.Vec{X: prm.ParticleRadius, Y: prm.ParticleRadius, Z: prm.ParticleRadius})
	return r3.Vec{
		X: k * penetration(p.X, lim.X),
		Y: k * penetration(p.Y, lim.Y),
		Z: k * penetration(p.Z, lim.Z),
	}
}

func penetration(x, lim float64) float64 {
	switch {
	case x < -lim:
		return -lim - x
	case x > lim:
		return lim - x
	}
	return 0
}

func (s *SPH) integrate(ws *Workspace) error {
	dt := ws.Params.Dt
	return ws.parallel(func(i int) {
		p := &ws.Particles[i]
		if p.Density > 0 {
			p.Velocity = r3.Add(p.Velocity, r3.Scale(dt/p.Density, p.Force))
		}
		p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))
	})
}
