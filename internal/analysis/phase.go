package analysis

import (
	"fmt"
	"strings"
)

type Point struct{ X, Y float64 }

// PhasePortrait pairs two metric series sample by sample.
type PhasePortrait struct {
	XName, YName string
	Points       []Point
}

func NewPhasePortrait(history map[string][]float64, xName, yName string) (*PhasePortrait, error) {
	xs, ok := history[xName]
	if !ok {
		return nil, fmt.Errorf("analysis: no metric %q", xName)
	}
	ys, ok := history[yName]
	if !ok {
		return nil, fmt.Errorf("analysis: no metric %q", yName)
	}

	n := min(len(xs), len(ys))
	portrait := &PhasePortrait{XName: xName, YName: yName, Points: make([]Point, n)}
	for i := 0; i < n; i++ {
		portrait.Points[i] = Point{xs[i], ys[i]}
	}
	return portrait, nil
}

// ToASCII plots the portrait on a width x height character grid. The
// final sample is drawn as 'o'.
func (p *PhasePortrait) ToASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	cell := func(pt Point) (int, int) {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		return row, col
	}
	for _, pt := range p.Points {
		row, col := cell(pt)
		grid[row][col] = '•'
	}
	row, col := cell(p.Points[len(p.Points)-1])
	grid[row][col] = 'o'

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (y) vs %s (x)\n", p.YName, p.XName)
	for _, r := range grid {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}
