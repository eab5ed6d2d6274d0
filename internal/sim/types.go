package sim

import (
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/telemetry"
)

// Frame is the published state of a completed tick. Particles handed to a
// View callback or an Observer are shared and must be treated as read-only;
// Snapshot returns an owned copy.
type Frame struct {
	Tick      uint64
	Time      float64
	Particles []fluid.Particle
}

// Clone returns a frame with its own particle array.
func (f Frame) Clone() Frame {
	out := f
	out.Particles = append([]fluid.Particle(nil), f.Particles...)
	return out
}

// Observer is called after every tick completed by Run. It must not call
// back into the engine.
type Observer interface {
	OnStep(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnStep(f Frame) { fn(f) }

// Result summarizes a Run.
type Result struct {
	StepsTaken int
	Tick       uint64
	Time       float64
	Times      []float64
	// History holds every metric's value after each tick.
	History map[string][]float64
	// Metrics holds every metric's value at the end of the run.
	Metrics map[string]float64
	Errors  []error
	Perf    telemetry.PerfStats
}
