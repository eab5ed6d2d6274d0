package compute

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultMinChunk is the smallest range worth handing to its own goroutine.
const DefaultMinChunk = 64

// CPUBackend splits each dispatch into contiguous chunks, one goroutine per
// chunk, bounded by the worker count.
type CPUBackend struct {
	workers  int
	minChunk int
}

func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{workers: workers, minChunk: DefaultMinChunk}
}

// WithMinChunk overrides the chunk floor. Tests use 1 to force fan-out.
func (c *CPUBackend) WithMinChunk(n int) *CPUBackend {
	if n < 1 {
		n = 1
	}
	c.minChunk = n
	return c
}

func (c *CPUBackend) Name() string { return "cpu" }
func (c *CPUBackend) Workers() int { return c.workers }
func (c *CPUBackend) Cleanup()     {}

func (c *CPUBackend) Dispatch(n int, k Kernel) error {
	if n <= 0 {
		return nil
	}
	if n <= c.minChunk || c.workers <= 1 {
		return k(0, n)
	}

	workers := c.workers
	if n/c.minChunk < workers {
		workers = n / c.minChunk
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (n + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(c.workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		start := start
		g.Go(func() error { return k(start, end) })
	}
	return g.Wait()
}
