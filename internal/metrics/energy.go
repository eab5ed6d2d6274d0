package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// KineticEnergy tracks Σ ½m|v|² of the latest tick and its largest relative
// drift from the first observed tick.
type KineticEnergy struct {
	name     string
	mass     float64
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewKineticEnergy(mass float64) *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy", mass: mass}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(ps []fluid.Particle, t float64) {
	ke := 0.0
	for i := range ps {
		ke += 0.5 * e.mass * r3.Norm2(ps[i].Velocity)
	}
	if e.samples == 0 {
		e.initial = ke
	}
	e.current = ke
	e.samples++

	if e.initial != 0 {
		e.maxDrift = math.Max(e.maxDrift, math.Abs(ke-e.initial)/e.initial)
	}
}

func (e *KineticEnergy) Value() float64 { return e.current }

// MaxDrift is the largest |KE - KE₀| / KE₀ seen since Reset.
func (e *KineticEnergy) MaxDrift() float64 { return e.maxDrift }

func (e *KineticEnergy) Reset() {
	e.initial, e.current, e.maxDrift = 0, 0, 0
	e.samples = 0
}

// Momentum tracks |Σ m v| of the latest tick and the largest value seen.
type Momentum struct {
	name    string
	mass    float64
	current float64
	max     float64
}

func NewMomentum(mass float64) *Momentum {
	return &Momentum{name: "momentum", mass: mass}
}

func (m *Momentum) Name() string { return m.name }

func (m *Momentum) Observe(ps []fluid.Particle, t float64) {
	var p r3.Vec
	for i := range ps {
		p = r3.Add(p, ps[i].Velocity)
	}
	m.current = m.mass * r3.Norm(p)
	m.max = math.Max(m.max, m.current)
}

func (m *Momentum) Value() float64 { return m.current }
func (m *Momentum) Max() float64   { return m.max }

func (m *Momentum) Reset() {
	m.current, m.max = 0, 0
}
