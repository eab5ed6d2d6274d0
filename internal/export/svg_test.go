package export

import (
	"bytes"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/viz"
)

func TestFrameToSVG(t *testing.T) {
	frame := sim.Frame{
		Tick: 12,
		Time: 0.12,
		Particles: []fluid.Particle{
			{Position: r3.Vec{}, Density: 8},
			{Position: r3.Vec{X: 0.5, Y: 0.5}, Density: 16},
			{Position: r3.Vec{X: -0.5, Y: 0.2, Z: 0.3}, Density: 2},
		},
	}
	domain := fluid.Domain{
		Extents:  r3.Vec{X: 1, Y: 1, Z: 1},
		Obstacle: &fluid.Sphere{Radius: 0.2},
	}

	var buf bytes.Buffer
	if err := FrameToSVG(&buf, frame, FrameOptions{Domain: domain, RestDensity: 8, Theme: viz.ThemeLava}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>\n") {
		t.Error("output is not a complete svg document")
	}
	if got := strings.Count(out, "<circle"); got != 3 {
		t.Errorf("expected 3 particles, got %d", got)
	}
	// 12 box edges plus 3 circles of 24 segments
	if got := strings.Count(out, "<line"); got != 12+3*24 {
		t.Errorf("expected %d wireframe lines, got %d", 12+3*24, got)
	}
	if !strings.Contains(out, "tick 12") {
		t.Error("missing frame caption")
	}
	if !strings.Contains(out, string(viz.ThemeLava.Palette[len(viz.ThemeLava.Palette)-1])) {
		t.Error("dense particle should use the top palette colour")
	}
}

func TestFrameToSVGEmptyPalette(t *testing.T) {
	frame := sim.Frame{Particles: []fluid.Particle{{Density: 1}}}
	theme := viz.Theme{Name: "bare", Primary: "#123456"}

	var buf bytes.Buffer
	if err := FrameToSVG(&buf, frame, FrameOptions{Theme: theme, Domain: fluid.Domain{Extents: r3.Vec{X: 1, Y: 1, Z: 1}}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `fill="#123456"`) {
		t.Error("expected primary colour fallback")
	}
}

func TestSeriesToSVG(t *testing.T) {
	times := []float64{0, 0.1, 0.2, 0.3}
	values := []float64{1, 3, 2, 2}

	var buf bytes.Buffer
	if err := SeriesToSVG(&buf, times, values, 400, 200, "#00ff00"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if got := strings.Count(out, " L"); got != 3 {
		t.Errorf("expected 3 line segments, got %d", got)
	}
	if !strings.Contains(out, `stroke="#00ff00"`) {
		t.Error("missing stroke colour")
	}

	if err := SeriesToSVG(&buf, times[:1], values[:1], 400, 200, "#fff"); err == nil {
		t.Error("expected error for a single sample")
	}
}
