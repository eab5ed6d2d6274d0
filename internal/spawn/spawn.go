// Package spawn builds initial particle layouts.
package spawn

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// Pattern is the spawn layout.
type Pattern int

const (
	Grid Pattern = iota
	Jittered
	Random
)

func (p Pattern) String() string {
	switch p {
	case Jittered:
		return "jittered"
	case Random:
		return "random"
	}
	return "grid"
}

func ParsePattern(s string) (Pattern, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "grid":
		return Grid, nil
	case "jittered", "jitter":
		return Jittered, nil
	case "random":
		return Random, nil
	}
	return 0, fluid.InvalidConfig("spawn.pattern", "unknown pattern %q", s)
}

// Options describes one spawn.
type Options struct {
	Pattern Pattern
	Count   int
	Region  r3.Box
	// Spacing is the lattice step of Grid and Jittered.
	Spacing float64
	// Jitter is the distance each Jittered particle is moved in a uniformly
	// random direction.
	Jitter   float64
	Velocity r3.Vec
	Seed     int64
}

// Capacity returns how many lattice sites fit in the region.
func (o Options) Capacity() int {
	if !(o.Spacing > 0) {
		return 0
	}
	nx, ny, nz := o.dims()
	return nx * ny * nz
}

func (o Options) dims() (int, int, int) {
	size := r3.Sub(o.Region.Max, o.Region.Min)
	n := func(extent float64) int {
		return int(math.Floor(extent/o.Spacing + 1e-9))
	}
	return n(size.X), n(size.Y), n(size.Z)
}

// Generate returns opts.Count particles. The same options always give the
// same layout.
func Generate(opts Options) ([]fluid.Particle, error) {
	if opts.Count <= 0 {
		return nil, fluid.InvalidConfig("particle_count", "must be > 0, got %d", opts.Count)
	}
	size := r3.Sub(opts.Region.Max, opts.Region.Min)
	if size.X < 0 || size.Y < 0 || size.Z < 0 {
		return nil, fluid.InvalidConfig("spawn.region", "min %v exceeds max %v", opts.Region.Min, opts.Region.Max)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	ps := make([]fluid.Particle, opts.Count)

	if opts.Pattern == Random {
		for i := range ps {
			ps[i].Position = r3.Vec{
				X: opts.Region.Min.X + rng.Float64()*size.X,
				Y: opts.Region.Min.Y + rng.Float64()*size.Y,
				Z: opts.Region.Min.Z + rng.Float64()*size.Z,
			}
			ps[i].Velocity = opts.Velocity
		}
		return ps, nil
	}

	if capacity := opts.Capacity(); opts.Count > capacity {
		return nil, fluid.InvalidConfig("spawn.region", "holds %d particles at spacing %g, need %d", capacity, opts.Spacing, opts.Count)
	}

	// Fill x, then z, then stack layers upward along y.
	nx, _, nz := opts.dims()
	half := opts.Spacing / 2
	for i := range ps {
		x := i % nx
		z := (i / nx) % nz
		y := i / (nx * nz)
		p := r3.Add(opts.Region.Min, r3.Vec{
			X: float64(x)*opts.Spacing + half,
			Y: float64(y)*opts.Spacing + half,
			Z: float64(z)*opts.Spacing + half,
		})
		if opts.Pattern == Jittered && opts.Jitter > 0 {
			p = r3.Add(p, r3.Scale(opts.Jitter, OnUnitSphere(rng)))
		}
		ps[i].Position = p
		ps[i].Velocity = opts.Velocity
	}
	return ps, nil
}

// OnUnitSphere returns a uniformly distributed unit vector.
func OnUnitSphere(rng *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		if n := r3.Norm(v); n > 1e-12 {
			return r3.Scale(1/n, v)
		}
	}
}

func (o Options) String() string {
	return fmt.Sprintf("%s n=%d spacing=%g", o.Pattern, o.Count, o.Spacing)
}
