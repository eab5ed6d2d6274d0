// Package compute provides the data-parallel kernel backends that run the
// simulation pipeline.
//
// A kernel is a function over an element range. Backend.Dispatch executes a
// kernel over [0, n) and acts as the barrier between pipeline stages:
//
//	backend, _ := compute.New("cpu", 0)
//	defer backend.Cleanup()
//	err := backend.Dispatch(len(particles), func(start, end int) error {
//		for i := start; i < end; i++ {
//			// write only element i
//		}
//		return nil
//	})
//
// Kernels must write only to the elements of their own range. Under that
// rule every backend produces identical results.
//
// Backends are plain values owned by whoever creates them; there is no
// process-wide default.
package compute
