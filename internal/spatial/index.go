package spatial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/fluid"
)

// Index answers neighbour-candidate queries for the positions passed to the
// last Build.
type Index interface {
	Name() string
	Build(points []r3.Vec) error
	// ForEach calls visit for every candidate j of particle i, including i
	// itself. The order is fixed for a given Build.
	ForEach(i int, visit func(j int))
}

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y, Z int
}

// CellOf returns floor(p / size) per axis.
func CellOf(p r3.Vec, size float64) Cell {
	return Cell{
		X: int(math.Floor(p.X / size)),
		Y: int(math.Floor(p.Y / size)),
		Z: int(math.Floor(p.Z / size)),
	}
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Names lists the registered index kinds.
func Names() []string { return []string{"hash", "bitonic", "brute"} }

// New builds the named index. box bounds the sorted grid's cell table; pad
// enables sentinel padding for non power-of-two counts.
func New(name string, cellSize float64, box r3.Box, pad bool, backend compute.Backend) (Index, error) {
	switch name {
	case "hash", "":
		return NewHashGrid(cellSize, backend), nil
	case "bitonic":
		g, err := NewSortedGrid(cellSize, box, pad, backend)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "brute":
		return NewBruteForce(), nil
	}
	return nil, fluid.InvalidConfig("index", "unknown index %q", name)
}
