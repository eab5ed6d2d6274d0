// Package fluid holds the particle model shared by every stage of the
// simulation pipeline.
//
// The package defines:
//
//   - [Particle]: fixed-size particle record (array-of-structs layout)
//   - [Store]: the contiguous particle array, sole owner of simulation state
//   - [Params]: physics parameters, some of which are mutable between ticks
//   - [Domain]: the axis-aligned box the fluid lives in, plus an optional
//     static [Sphere] obstacle
//   - [Mode]: solver mode selector (SPH or PBF)
//
// Vectors are gonum [r3.Vec] values in float64.
//
// # Thread Safety
//
// Store is NOT thread-safe. The step orchestrator owns it for the duration of
// a tick; external readers only ever see copies published after a tick.
package fluid
