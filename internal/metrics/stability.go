package metrics

import (
	"github.com/san-kum/fluidsim/internal/fluid"
)

// Containment is the fraction of observed ticks on which every particle was
// inside the domain box shrunk by the particle radius.
type Containment struct {
	name       string
	domain     fluid.Domain
	margin     float64
	violations int
	samples    int
}

func NewContainment(domain fluid.Domain, particleRadius float64) *Containment {
	return &Containment{
		name:   "containment",
		domain: domain,
		margin: particleRadius,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(ps []fluid.Particle, t float64) {
	c.samples++
	for i := range ps {
		if !c.domain.Contains(ps[i].Position, c.margin) {
			c.violations++
			break
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
