package fluid

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// WallMode selects how the box walls act on particles.
type WallMode int

const (
	// WallClamp projects escaping particles back onto the wall and reflects
	// the offending velocity component.
	WallClamp WallMode = iota
	// WallPenalty pushes particles back with a spring force. Particles may
	// overshoot the wall between ticks. SPH only.
	WallPenalty
)

func (w WallMode) String() string {
	if w == WallPenalty {
		return "penalty"
	}
	return "clamp"
}

// ParseWallMode accepts "clamp" or "penalty"; empty means clamp.
func ParseWallMode(s string) (WallMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return WallClamp, nil
	case "penalty":
		return WallPenalty, nil
	}
	return 0, InvalidConfig("boundary", "unknown wall mode %q", s)
}

// Sphere is a static spherical obstacle.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

// Domain is an axis-aligned box centred on the origin.
type Domain struct {
	// Extents are the half-widths of the box along each axis.
	Extents  r3.Vec
	Walls    WallMode
	Obstacle *Sphere
}

// Box returns the domain as an r3.Box.
func (d Domain) Box() r3.Box {
	return r3.Box{Min: r3.Scale(-1, d.Extents), Max: d.Extents}
}

// Contains reports whether p lies inside the box shrunk by margin on every side.
func (d Domain) Contains(p r3.Vec, margin float64) bool {
	const slack = 1e-9
	return math.Abs(p.X) <= d.Extents.X-margin+slack &&
		math.Abs(p.Y) <= d.Extents.Y-margin+slack &&
		math.Abs(p.Z) <= d.Extents.Z-margin+slack
}

// Validate checks the box against the particle radius.
func (d Domain) Validate(particleRadius float64) error {
	axes := [3]float64{d.Extents.X, d.Extents.Y, d.Extents.Z}
	for i, e := range axes {
		if !(e > particleRadius) {
			return InvalidConfig("extents."+string(rune('x'+i)), "must exceed particle radius %g, got %g", particleRadius, e)
		}
	}
	if d.Obstacle != nil && !(d.Obstacle.Radius > 0) {
		return InvalidConfig("obstacle.radius", "must be > 0, got %g", d.Obstacle.Radius)
	}
	return nil
}

func (d Domain) String() string {
	return fmt.Sprintf("box[±%.3g ±%.3g ±%.3g] walls=%s", d.Extents.X, d.Extents.Y, d.Extents.Z, d.Walls)
}
