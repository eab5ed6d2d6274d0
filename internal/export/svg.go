// Package export renders particle frames and metric series as SVG.
package export

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/viz"
)

const background = "#0a0a0a"

// FrameOptions controls FrameToSVG. Zero values pick defaults.
type FrameOptions struct {
	Width, Height int
	Camera        *viz.Camera
	Theme         viz.Theme
	Domain        fluid.Domain
	RestDensity   float64
	// DotRadius is in pixels.
	DotRadius float64
}

func (o *FrameOptions) defaults() {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.Theme.Name == "" {
		o.Theme = viz.ThemeOcean
	}
	if o.Camera == nil {
		o.Camera = viz.NewCamera()
		o.Camera.Fit(o.Domain.Extents)
	}
	if o.DotRadius <= 0 {
		o.DotRadius = 2
	}
}

// FrameToSVG draws the domain box, obstacle and particles of f. Particles
// are painted far to near and coloured by density through the theme
// palette.
func FrameToSVG(w io.Writer, f sim.Frame, opts FrameOptions) error {
	opts.defaults()
	cam := opts.Camera

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, opts.Width, opts.Height, opts.Width, opts.Height, background)

	wire := &viz.Wireframe{}
	if hasBox(opts.Domain) {
		wire.Edges = append(wire.Edges, viz.BoxWireframe(opts.Domain.Extents).Edges...)
	}
	if opts.Domain.Obstacle != nil {
		wire.Edges = append(wire.Edges, viz.SphereWireframe(*opts.Domain.Obstacle, 24).Edges...)
	}
	if len(wire.Edges) > 0 {
		fmt.Fprintf(&sb, `<g stroke="%s" stroke-width="1" fill="none">
`, opts.Theme.Muted)
		for _, e := range wire.Edges {
			x1, y1, _, v1 := cam.Project(e.Start, opts.Width, opts.Height)
			x2, y2, _, v2 := cam.Project(e.End, opts.Width, opts.Height)
			if v1 || v2 {
				fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d"/>
`, x1, y1, x2, y2)
			}
		}
		sb.WriteString("</g>\n")
	}

	type dot struct {
		x, y  int
		depth float64
		color string
	}
	palette := opts.Theme.Palette
	if len(palette) == 0 {
		palette = []lipgloss.Color{opts.Theme.Primary}
	}
	dots := make([]dot, 0, len(f.Particles))
	for i := range f.Particles {
		p := &f.Particles[i]
		x, y, d, ok := cam.Project(p.Position, opts.Width, opts.Height)
		if !ok {
			continue
		}
		shade := 0.5
		if opts.RestDensity > 0 {
			shade = math.Max(0, math.Min(1, p.Density/(2*opts.RestDensity)))
		}
		idx := min(len(palette)-1, int(shade*float64(len(palette))))
		dots = append(dots, dot{x, y, d, string(palette[idx])})
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].depth < dots[j].depth })

	sb.WriteString("<g>\n")
	for _, d := range dots {
		fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="%.1f" fill="%s"/>
`, d.x, d.y, opts.DotRadius, d.color)
	}
	sb.WriteString("</g>\n")
	fmt.Fprintf(&sb, `<text x="8" y="18" fill="%s" font-family="monospace" font-size="12">tick %d  t=%.3fs  n=%d</text>
`, opts.Theme.Text, f.Tick, f.Time, len(f.Particles))
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func hasBox(d fluid.Domain) bool {
	return d.Extents.X > 0 && d.Extents.Y > 0 && d.Extents.Z > 0
}

// SeriesToSVG draws a metric series against time as a polyline.
func SeriesToSVG(w io.Writer, times, values []float64, width, height int, strokeColor string) error {
	n := min(len(times), len(values))
	if n < 2 {
		return fmt.Errorf("export: need at least two samples, got %d", n)
	}

	minX, maxX := times[0], times[n-1]
	minY, maxY := values[0], values[0]
	for _, v := range values[:n] {
		if v < minY {
			minY = v
		}
		if v > maxY {
			maxY = v
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i := 0; i < n; i++ {
		x := (times[i] - minX) / rangeX * float64(width)
		y := float64(height) - (values[i]-minY)/rangeY*float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}
	sb.WriteString("\"/>\n</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
