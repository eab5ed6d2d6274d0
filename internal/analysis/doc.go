// Package analysis summarizes recorded metric histories of a run.
//
//   - [Summarize] and [Report]: per-metric statistics and settle time
//   - [DominantFrequency]: sloshing frequency of a series
//   - [NewPhasePortrait]: one metric plotted against another
//
// A dam break that has come to rest shows a small density error settle
// time and a kinetic energy spectrum dominated by the tank's sloshing mode:
//
//	f, amp, err := analysis.DominantFrequency(history["kinetic_energy"], dt)
package analysis
