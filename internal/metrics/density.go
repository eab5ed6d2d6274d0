package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// DensityError is the mean of |ρ/ρ0 - 1| over all particles at the latest
// tick.
type DensityError struct {
	name    string
	rho0    float64
	buf     []float64
	mean    float64
	std     float64
	samples int
}

func NewDensityError(restDensity float64) *DensityError {
	return &DensityError{name: "density_error", rho0: restDensity}
}

func (d *DensityError) Name() string { return d.name }

func (d *DensityError) Observe(ps []fluid.Particle, t float64) {
	if len(ps) == 0 {
		return
	}
	d.buf = d.buf[:0]
	for i := range ps {
		d.buf = append(d.buf, math.Abs(ps[i].Density/d.rho0-1))
	}
	d.mean, d.std = stat.MeanStdDev(d.buf, nil)
	d.samples++
}

func (d *DensityError) Value() float64 { return d.mean }
func (d *DensityError) Std() float64   { return d.std }

func (d *DensityError) Reset() {
	d.mean, d.std = 0, 0
	d.samples = 0
}

// MinDensity is the smallest particle density seen since Reset.
type MinDensity struct {
	name string
	min  float64
	seen bool
}

func NewMinDensity() *MinDensity { return &MinDensity{name: "min_density"} }

func (m *MinDensity) Name() string { return m.name }

func (m *MinDensity) Observe(ps []fluid.Particle, t float64) {
	for i := range ps {
		if !m.seen || ps[i].Density < m.min {
			m.min = ps[i].Density
			m.seen = true
		}
	}
}

func (m *MinDensity) Value() float64 { return m.min }

func (m *MinDensity) Reset() {
	m.min, m.seen = 0, false
}

// MaxSpeed is the largest particle speed at the latest tick.
type MaxSpeed struct {
	name   string
	speeds []float64
	value  float64
}

func NewMaxSpeed() *MaxSpeed { return &MaxSpeed{name: "max_speed"} }

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(ps []fluid.Particle, t float64) {
	if len(ps) == 0 {
		return
	}
	m.speeds = m.speeds[:0]
	for i := range ps {
		m.speeds = append(m.speeds, r3.Norm(ps[i].Velocity))
	}
	m.value = floats.Max(m.speeds)
}

func (m *MaxSpeed) Value() float64 { return m.value }

func (m *MaxSpeed) Reset() { m.value = 0 }
