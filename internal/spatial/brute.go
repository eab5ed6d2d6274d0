package spatial

import "gonum.org/v1/gonum/spatial/r3"

// BruteForce treats every particle as a candidate neighbour of every other.
// It is the O(N²) reference the grid indices are checked against.
type BruteForce struct {
	n int
}

func NewBruteForce() *BruteForce { return &BruteForce{} }

func (b *BruteForce) Name() string { return "brute" }

func (b *BruteForce) Build(points []r3.Vec) error {
	b.n = len(points)
	return nil
}

func (b *BruteForce) ForEach(_ int, visit func(j int)) {
	for j := 0; j < b.n; j++ {
		visit(j)
	}
}
