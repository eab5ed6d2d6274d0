package solver

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/fluid"
)

func applyBoundary(ws *Workspace) error {
	d := ws.Domain
	prm := ws.Params
	return ws.parallel(func(i int) {
		p := &ws.Particles[i]
		if d.Obstacle != nil {
			CollideSphere(p, *d.Obstacle, prm.ParticleRadius, prm.Damping)
		}
		if d.Walls == fluid.WallClamp {
			ClampToBox(p, d.Extents, prm.ParticleRadius, prm.Damping)
		}
	})
}

// ClampToBox projects p onto the box shrunk by radius and reflects each
// offending velocity component, scaled by damping. Axes are independent.
func ClampToBox(p *fluid.Particle, ext r3.Vec, radius, damping float64) {
	clampAxis(&p.Position.X, &p.Velocity.X, ext.X-radius, damping)
	clampAxis(&p.Position.Y, &p.Velocity.Y, ext.Y-radius, damping)
	clampAxis(&p.Position.Z, &p.Velocity.Z, ext.Z-radius, damping)
}

func clampAxis(x, v *float64, lim, damping float64) {
	switch {
	case *x < -lim:
		*x = -lim
		*v *= -damping
	case *x > lim:
		*x = lim
		*v *= -damping
	}
}

// CollideSphere pushes p out of the obstacle and reflects the inbound normal
// velocity, scaled by damping.
func CollideSphere(p *fluid.Particle, s fluid.Sphere, radius, damping float64) {
	minDist := s.Radius + radius
	d := r3.Sub(p.Position, s.Center)
	dist := r3.Norm(d)
	if dist >= minDist {
		return
	}

	var n r3.Vec
	if dist < 1e-12 {
		n = r3.Vec{Y: 1}
	} else {
		n = r3.Scale(1/dist, d)
	}
	p.Position = r3.Add(s.Center, r3.Scale(minDist, n))

	vn := r3.Dot(p.Velocity, n)
	if vn < 0 {
		p.Velocity = r3.Sub(p.Velocity, r3.Scale((1+damping)*vn, n))
	}
}
