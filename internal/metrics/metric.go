// Package metrics provides per-tick diagnostics over a particle snapshot.
package metrics

import "github.com/san-kum/fluidsim/internal/fluid"

// Metric observes completed ticks. Observe must not retain ps.
type Metric interface {
	Name() string
	Observe(ps []fluid.Particle, t float64)
	Value() float64
	Reset()
}

// Defaults returns the standard diagnostic set for a scene.
func Defaults(params fluid.Params, domain fluid.Domain) []Metric {
	ms := []Metric{
		NewKineticEnergy(params.Mass),
		NewMomentum(params.Mass),
		NewDensityError(params.RestDensity),
		NewMinDensity(),
		NewMaxSpeed(),
	}
	if domain.Walls == fluid.WallClamp {
		ms = append(ms, NewContainment(domain, params.ParticleRadius))
	}
	return ms
}
