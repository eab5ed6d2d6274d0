package spatial

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/compute"
)

// HashGrid buckets particle indices by cell coordinate. It has no particle
// count restrictions.
type HashGrid struct {
	cellSize float64
	backend  compute.Backend

	cells  map[Cell][]int
	cellOf []Cell
}

func NewHashGrid(cellSize float64, backend compute.Backend) *HashGrid {
	if backend == nil {
		backend = compute.NewSerialBackend()
	}
	return &HashGrid{
		cellSize: cellSize,
		backend:  backend,
		cells:    make(map[Cell][]int),
	}
}

func (g *HashGrid) Name() string { return "hash" }

// Build clears the grid and repopulates it. Cell coordinates are computed
// in parallel; bucket insertion is serial and in index order.
func (g *HashGrid) Build(points []r3.Vec) error {
	n := len(points)
	if cap(g.cellOf) < n {
		g.cellOf = make([]Cell, n)
	}
	g.cellOf = g.cellOf[:n]

	err := g.backend.Dispatch(n, func(start, end int) error {
		for i := start; i < end; i++ {
			g.cellOf[i] = CellOf(points[i], g.cellSize)
		}
		return nil
	})
	if err != nil {
		return err
	}

	clear(g.cells)
	for i, c := range g.cellOf {
		g.cells[c] = append(g.cells[c], i)
	}
	return nil
}

func (g *HashGrid) ForEach(i int, visit func(j int)) {
	c := g.cellOf[i]
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for _, j := range g.cells[Cell{c.X + dx, c.Y + dy, c.Z + dz}] {
					visit(j)
				}
			}
		}
	}
}

// Occupied returns the number of non-empty cells after the last Build.
func (g *HashGrid) Occupied() int { return len(g.cells) }
