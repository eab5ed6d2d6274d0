package compute

import (
	"fmt"
	"runtime"
	"strings"
)

// Kernel processes the half-open element range [start, end).
type Kernel func(start, end int) error

// Backend runs data-parallel kernels. Dispatch is one pipeline stage: it
// returns only after every element in [0, n) has been processed, so a
// caller can rely on the full output of one Dispatch before the next.
type Backend interface {
	Name() string
	Workers() int
	Dispatch(n int, k Kernel) error
	Cleanup()
}

// Names lists the registered backend names.
func Names() []string { return []string{"cpu", "serial", "auto"} }

// New builds the named backend. workers <= 0 means runtime.NumCPU.
func New(name string, workers int) (Backend, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	switch strings.ToLower(name) {
	case "", "auto":
		return AutoSelectBackend(workers), nil
	case "cpu":
		return NewCPUBackend(workers), nil
	case "serial":
		return NewSerialBackend(), nil
	}
	return nil, fmt.Errorf("compute: unknown backend %q", name)
}

// AutoSelectBackend picks the pool when more than one worker is usable.
func AutoSelectBackend(workers int) Backend {
	if workers > 1 {
		return NewCPUBackend(workers)
	}
	return NewSerialBackend()
}
