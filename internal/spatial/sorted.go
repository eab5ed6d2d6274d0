package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/fluid"
)

// maxCells keeps cell ids and particle indices packable into one uint64 key.
const maxCells = 1 << 31

// CellRange is one row of the offset table: sorted entries
// [Start, Start+Count) belong to the cell.
type CellRange struct {
	Start int
	Count int
}

// SortedGrid is the data-parallel encoding of the cell grid. Every Build
// runs four stages, each a full barrier on the backend:
//
//	hash     key[i] = cellID(p[i])<<32 | i, padding keys = Sentinel
//	sort     bitonic network over the keys
//	clear    reset the offset table
//	offsets  first and last entry of every run of equal cell ids
//
// Cell ids are linear over a bounded box, so distinct cells never collide.
// Positions outside the box are clamped into the border cells, which keeps
// every true neighbour inside the 3×3×3 query block.
type SortedGrid struct {
	cellSize float64
	origin   r3.Vec
	dims     [3]int
	pad      bool
	backend  compute.Backend

	keys   []uint64
	cellOf []uint32
	starts []int32
	ends   []int32
	n      int

	// Stage, when set, is called with each stage name before it runs.
	Stage func(name string)
}

// NewSortedGrid covers box with cells of edge cellSize. When pad is false,
// Build rejects particle counts that are not a power of two.
func NewSortedGrid(cellSize float64, box r3.Box, pad bool, backend compute.Backend) (*SortedGrid, error) {
	if !(cellSize > 0) {
		return nil, fluid.InvalidConfig("smoothing_radius", "must be > 0, got %g", cellSize)
	}
	if backend == nil {
		backend = compute.NewSerialBackend()
	}
	size := r3.Sub(box.Max, box.Min)
	g := &SortedGrid{
		cellSize: cellSize,
		origin:   box.Min,
		pad:      pad,
		backend:  backend,
	}
	total := 1
	for a, extent := range [3]float64{size.X, size.Y, size.Z} {
		d := int(math.Ceil(extent / cellSize))
		if d < 1 {
			d = 1
		}
		g.dims[a] = d
		total *= d
		if total >= maxCells {
			return nil, fluid.InvalidConfig("smoothing_radius", "domain needs more than %d cells", maxCells)
		}
	}
	g.starts = make([]int32, total)
	g.ends = make([]int32, total)
	return g, nil
}

func (g *SortedGrid) Name() string { return "bitonic" }

// Dims returns the number of cells along each axis.
func (g *SortedGrid) Dims() [3]int { return g.dims }

// NumCells returns the size of the offset table.
func (g *SortedGrid) NumCells() int { return len(g.starts) }

// CheckCount reports whether n particles can be sorted by this grid.
func (g *SortedGrid) CheckCount(n int) error {
	if !g.pad && !IsPowerOfTwo(n) {
		return fluid.InvalidConfig("particle_count", "bitonic index needs a power of two (or pad_sort), got %d", n)
	}
	return nil
}

func (g *SortedGrid) coords(p r3.Vec) [3]int {
	rel := r3.Sub(p, g.origin)
	var c [3]int
	for a, v := range [3]float64{rel.X, rel.Y, rel.Z} {
		i := int(math.Floor(v / g.cellSize))
		if i < 0 {
			i = 0
		} else if i >= g.dims[a] {
			i = g.dims[a] - 1
		}
		c[a] = i
	}
	return c
}

func (g *SortedGrid) linear(c [3]int) uint32 {
	return uint32((c[2]*g.dims[1]+c[1])*g.dims[0] + c[0])
}

// CellID returns the linear cell id of p.
func (g *SortedGrid) CellID(p r3.Vec) uint32 {
	return g.linear(g.coords(p))
}

func (g *SortedGrid) Build(points []r3.Vec) error {
	n := len(points)
	if err := g.CheckCount(n); err != nil {
		return err
	}
	size := NextPowerOfTwo(n)
	if cap(g.keys) < size {
		g.keys = make([]uint64, size)
		g.cellOf = make([]uint32, size)
	}
	g.keys = g.keys[:size]
	g.cellOf = g.cellOf[:n]
	g.n = n

	g.stage("hash")
	err := g.backend.Dispatch(size, func(start, end int) error {
		for i := start; i < end; i++ {
			if i >= n {
				g.keys[i] = Sentinel
				continue
			}
			c := g.CellID(points[i])
			g.cellOf[i] = c
			g.keys[i] = uint64(c)<<32 | uint64(i)
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.stage("sort")
	if err := BitonicSort(g.backend, g.keys); err != nil {
		return err
	}

	g.stage("clear")
	err = g.backend.Dispatch(len(g.starts), func(start, end int) error {
		clear(g.starts[start:end])
		clear(g.ends[start:end])
		return nil
	})
	if err != nil {
		return err
	}

	g.stage("offsets")
	// Only the first entry of a run writes its start and only the last
	// writes its end, so every table slot has a single writer.
	return g.backend.Dispatch(n, func(start, end int) error {
		for i := start; i < end; i++ {
			c := uint32(g.keys[i] >> 32)
			if i == 0 || uint32(g.keys[i-1]>>32) != c {
				g.starts[c] = int32(i)
			}
			if i == n-1 || uint32(g.keys[i+1]>>32) != c {
				g.ends[c] = int32(i + 1)
			}
		}
		return nil
	})
}

func (g *SortedGrid) stage(name string) {
	if g.Stage != nil {
		g.Stage(name)
	}
}

// Range returns the offset-table row of a cell id.
func (g *SortedGrid) Range(cell uint32) CellRange {
	s, e := g.starts[cell], g.ends[cell]
	return CellRange{Start: int(s), Count: int(e - s)}
}

func (g *SortedGrid) ForEach(i int, visit func(j int)) {
	c := g.cellOf[i]
	nx, ny := uint32(g.dims[0]), uint32(g.dims[1])
	cx := int(c % nx)
	cy := int(c / nx % ny)
	cz := int(c / (nx * ny))

	for dx := -1; dx <= 1; dx++ {
		x := cx + dx
		if x < 0 || x >= g.dims[0] {
			continue
		}
		for dy := -1; dy <= 1; dy++ {
			y := cy + dy
			if y < 0 || y >= g.dims[1] {
				continue
			}
			for dz := -1; dz <= 1; dz++ {
				z := cz + dz
				if z < 0 || z >= g.dims[2] {
					continue
				}
				id := g.linear([3]int{x, y, z})
				for s := g.starts[id]; s < g.ends[id]; s++ {
					visit(int(uint32(g.keys[s])))
				}
			}
		}
	}
}

// DebugBuffers is a copy of the sort-stage buffers.
type DebugBuffers struct {
	// SortedCells and SortedIndices hold the real (non-sentinel) entries in
	// sorted order.
	SortedCells   []uint32
	SortedIndices []int
	// CellOf is the cell id of each particle.
	CellOf []uint32
	// Offsets is the full offset table, indexed by cell id.
	Offsets []CellRange
	Padding int
}

// Debug copies the buffers of the last Build.
func (g *SortedGrid) Debug() DebugBuffers {
	d := DebugBuffers{
		SortedCells:   make([]uint32, g.n),
		SortedIndices: make([]int, g.n),
		CellOf:        append([]uint32(nil), g.cellOf...),
		Offsets:       make([]CellRange, len(g.starts)),
		Padding:       len(g.keys) - g.n,
	}
	for i := 0; i < g.n; i++ {
		d.SortedCells[i] = uint32(g.keys[i] >> 32)
		d.SortedIndices[i] = int(uint32(g.keys[i]))
	}
	for c := range g.starts {
		d.Offsets[c] = g.Range(uint32(c))
	}
	return d
}
