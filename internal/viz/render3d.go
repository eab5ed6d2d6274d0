package viz

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// Camera is an orbit camera looking at the origin.
type Camera struct {
	Distance   float64
	Yaw, Pitch float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 50, Yaw: 0.5, Pitch: 0.35, Zoom: 1}
}

// Fit scales the view so a box with half extents ext fills the screen.
func (c *Camera) Fit(ext r3.Vec) {
	if n := r3.Norm(ext); n > 0 {
		c.Zoom = 1.4 / n
	}
}

func (c *Camera) Orbit(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = math.Max(-math.Pi/2, math.Min(math.Pi/2, c.Pitch+dpitch))
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.01, c.Zoom/1.2) }

func (c *Camera) rotate(p r3.Vec) r3.Vec {
	cy, sy := math.Cos(c.Yaw), math.Sin(c.Yaw)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cp, sp := math.Cos(c.Pitch), math.Sin(c.Pitch)
	p.Y, p.Z = p.Y*cp-p.Z*sp, p.Y*sp+p.Z*cp
	return p
}

// Project maps a world point to dot coordinates on a sw x sh dot screen.
// It returns the depth and whether the point lands on screen.
func (c *Camera) Project(p r3.Vec, sw, sh int) (int, int, float64, bool) {
	rot := r3.Scale(c.Zoom, c.rotate(p))
	if rot.Z >= c.Distance-0.1 {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z)
	pScale := float64(min(sw, sh)) / 3.0
	sx := int(rot.X*scale*pScale) + sw/2
	sy := int(-rot.Y*scale*pScale) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type Edge struct {
	Start, End r3.Vec
}

type Wireframe struct{ Edges []Edge }

func (w *Wireframe) AddEdge(s, e r3.Vec) { w.Edges = append(w.Edges, Edge{s, e}) }

// BoxWireframe outlines the box [-ext, ext].
func BoxWireframe(ext r3.Vec) *Wireframe {
	w := &Wireframe{}
	x, y, z := ext.X, ext.Y, ext.Z
	v := []r3.Vec{
		{X: -x, Y: -y, Z: -z}, {X: x, Y: -y, Z: -z}, {X: x, Y: y, Z: -z}, {X: -x, Y: y, Z: -z},
		{X: -x, Y: -y, Z: z}, {X: x, Y: -y, Z: z}, {X: x, Y: y, Z: z}, {X: -x, Y: y, Z: z},
	}
	ei := [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}
	for _, e := range ei {
		w.AddEdge(v[e[0]], v[e[1]])
	}
	return w
}

// SphereWireframe draws three great circles of s.
func SphereWireframe(s fluid.Sphere, segments int) *Wireframe {
	w := &Wireframe{}
	point := func(axis int, a float64) r3.Vec {
		c, sn := s.Radius*math.Cos(a), s.Radius*math.Sin(a)
		switch axis {
		case 0:
			return r3.Add(s.Center, r3.Vec{Y: c, Z: sn})
		case 1:
			return r3.Add(s.Center, r3.Vec{X: c, Z: sn})
		}
		return r3.Add(s.Center, r3.Vec{X: c, Y: sn})
	}
	for axis := 0; axis < 3; axis++ {
		for i := 0; i < segments; i++ {
			a0 := 2 * math.Pi * float64(i) / float64(segments)
			a1 := 2 * math.Pi * float64(i+1) / float64(segments)
			w.AddEdge(point(axis, a0), point(axis, a1))
		}
	}
	return w
}

// RenderWireframe draws w onto c.
func RenderWireframe(c *Canvas, w *Wireframe, cam *Camera) {
	sw, sh := c.DotsWide(), c.DotsHigh()
	for _, e := range w.Edges {
		x1, y1, _, v1 := cam.Project(e.Start, sw, sh)
		x2, y2, _, v2 := cam.Project(e.End, sw, sh)
		if v1 || v2 {
			c.DrawLine(x1, y1, x2, y2)
		}
	}
}

// RenderParticles plots every particle far to near, weighted by its density
// relative to rho0. A weight of 0.5 means rest density.
func RenderParticles(c *Canvas, ps []fluid.Particle, cam *Camera, rho0 float64) {
	type dot struct {
		x, y  int
		depth float64
		w     float64
	}
	sw, sh := c.DotsWide(), c.DotsHigh()
	dots := make([]dot, 0, len(ps))
	for i := range ps {
		x, y, d, ok := cam.Project(ps[i].Position, sw, sh)
		if !ok {
			continue
		}
		w := 0.5
		if rho0 > 0 {
			w = math.Max(1e-3, math.Min(1, ps[i].Density/(2*rho0)))
		}
		dots = append(dots, dot{x, y, d, w})
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].depth < dots[j].depth })
	for _, d := range dots {
		c.SetWeighted(d.x, d.y, d.w)
	}
}
