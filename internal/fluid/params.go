package fluid

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Params holds the physics constants read by the solvers every tick.
type Params struct {
	Mode            Mode
	SmoothingRadius float64
	RestDensity     float64
	Stiffness       float64
	Viscosity       float64
	Mass            float64
	Gravity         r3.Vec
	Dt              float64
	// Damping scales the reflected velocity component on wall contact.
	Damping        float64
	ParticleRadius float64

	// PBF only. Iterations <= 0 passes predicted positions through unchanged.
	Iterations int
	Relaxation float64

	// WallStiffness is the spring constant of penalty walls.
	WallStiffness float64
}

// Configurable is implemented by anything exposing named float parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

var _ Configurable = (*Params)(nil)

// Validate rejects parameter sets that would make the physics meaningless.
func (p *Params) Validate() error {
	switch {
	case !(p.SmoothingRadius > 0):
		return InvalidConfig("smoothing_radius", "must be > 0, got %g", p.SmoothingRadius)
	case !(p.Mass > 0):
		return InvalidConfig("mass", "must be > 0, got %g", p.Mass)
	case !(p.RestDensity > 0):
		return InvalidConfig("rest_density", "must be > 0, got %g", p.RestDensity)
	case !(p.Dt > 0):
		return InvalidConfig("dt", "must be > 0, got %g", p.Dt)
	case p.Damping < 0 || p.Damping > 1:
		return InvalidConfig("damping", "must be in [0,1], got %g", p.Damping)
	case p.ParticleRadius < 0:
		return InvalidConfig("particle_radius", "must be >= 0, got %g", p.ParticleRadius)
	case p.Stiffness < 0:
		return InvalidConfig("stiffness", "must be >= 0, got %g", p.Stiffness)
	case p.Viscosity < 0:
		return InvalidConfig("viscosity", "must be >= 0, got %g", p.Viscosity)
	case p.Mode == PBF && !(p.Relaxation > 0):
		return InvalidConfig("relaxation", "must be > 0 in pbf mode, got %g", p.Relaxation)
	}
	if !finite(p.Gravity) {
		return InvalidConfig("gravity", "must be finite")
	}
	return nil
}

func (p *Params) GetParams() map[string]float64 {
	return map[string]float64{
		"smoothing_radius": p.SmoothingRadius,
		"rest_density":     p.RestDensity,
		"stiffness":        p.Stiffness,
		"viscosity":        p.Viscosity,
		"mass":             p.Mass,
		"gravity_x":        p.Gravity.X,
		"gravity_y":        p.Gravity.Y,
		"gravity_z":        p.Gravity.Z,
		"dt":               p.Dt,
		"damping":          p.Damping,
		"iterations":       float64(p.Iterations),
		"relaxation":       p.Relaxation,
		"wall_stiffness":   p.WallStiffness,
	}
}

// ParamNames returns the GetParams keys in sorted order.
func (p *Params) ParamNames() []string {
	m := p.GetParams()
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetParam updates one parameter. The smoothing radius sizes the neighbour
// grid and cannot change after construction.
func (p *Params) SetParam(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return InvalidConfig(name, "must be finite")
	}
	next := *p
	switch name {
	case "smoothing_radius":
		return InvalidConfig(name, "fixed at construction")
	case "rest_density":
		next.RestDensity = v
	case "stiffness":
		next.Stiffness = v
	case "viscosity":
		next.Viscosity = v
	case "mass":
		next.Mass = v
	case "gravity_x":
		next.Gravity.X = v
	case "gravity_y":
		next.Gravity.Y = v
	case "gravity_z":
		next.Gravity.Z = v
	case "dt":
		next.Dt = v
	case "damping":
		next.Damping = v
	case "iterations":
		next.Iterations = int(v)
	case "relaxation":
		next.Relaxation = v
	case "wall_stiffness":
		next.WallStiffness = v
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidConfig, name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}
