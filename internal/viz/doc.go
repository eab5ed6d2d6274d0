// Package viz is the terminal live view of a running simulation, built on
// Bubble Tea.
//
// Particles are projected through an orbit camera onto a braille canvas and
// coloured by density. A side panel shows the run state, tunable
// parameters and a density error graph.
//
// # Key Bindings
//
//	Space  - Pause/Resume
//	N      - Single step while paused
//	[ ]    - Shrink/grow the time step (until resume)
//	Tab    - Cycle parameters
//	Up/K   - Increase parameter (+5%)
//	Down/J - Decrease parameter (-5%)
//	Arrows - Orbit camera (left/right) and tilt (H/L)
//	+ -    - Zoom
//	T      - Cycle colour themes
//	?      - Help overlay
//	Q      - Quit
package viz
