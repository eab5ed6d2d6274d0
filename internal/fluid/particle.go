package fluid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Particle is one fluid element. The layout is fixed so a Store is a single
// contiguous array of structs.
type Particle struct {
	Position r3.Vec
	// PredictedPosition is the PBF staging position, committed to Position at
	// the end of a tick. Unused in SPH mode.
	PredictedPosition r3.Vec
	Velocity          r3.Vec
	// Force is the SPH accumulator, reset at the start of every force pass.
	Force r3.Vec

	Density  float64
	Pressure float64
	Lambda   float64
}

// IsValid reports whether every position and velocity component is finite.
func (p *Particle) IsValid() bool {
	return finite(p.Position) && finite(p.Velocity)
}

func finite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Store owns the particle array. Its length never changes after NewStore.
type Store struct {
	particles []Particle
}

// NewStore copies ps into a new store.
func NewStore(ps []Particle) *Store {
	s := &Store{particles: make([]Particle, len(ps))}
	copy(s.particles, ps)
	return s
}

func (s *Store) Len() int { return len(s.particles) }

// Particles exposes the backing array. Only the step orchestrator may hold
// the returned slice, and only for the duration of a tick.
func (s *Store) Particles() []Particle { return s.particles }

// CopyTo copies the particles into dst, growing it when needed, and returns
// the filled slice.
func (s *Store) CopyTo(dst []Particle) []Particle {
	if cap(dst) < len(s.particles) {
		dst = make([]Particle, len(s.particles))
	}
	dst = dst[:len(s.particles)]
	copy(dst, s.particles)
	return dst
}

// Positions writes every particle's position into dst.
func (s *Store) Positions(dst []r3.Vec) []r3.Vec {
	if cap(dst) < len(s.particles) {
		dst = make([]r3.Vec, len(s.particles))
	}
	dst = dst[:len(s.particles)]
	for i := range s.particles {
		dst[i] = s.particles[i].Position
	}
	return dst
}

// Validate returns the index of the first invalid particle wrapped in
// ErrInvalidState, or nil.
func (s *Store) Validate() error {
	for i := range s.particles {
		if !s.particles[i].IsValid() {
			return &ParticleError{Index: i, Wrapped: ErrInvalidState}
		}
	}
	return nil
}

// ParticleError points at the particle that failed validation.
type ParticleError struct {
	Index   int
	Wrapped error
}

func (e *ParticleError) Error() string {
	return fmt.Sprintf("%v: particle %d", e.Wrapped, e.Index)
}

func (e *ParticleError) Unwrap() error { return e.Wrapped }
