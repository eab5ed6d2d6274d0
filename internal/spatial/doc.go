// Package spatial provides the neighbour indices rebuilt every tick.
//
// Every index implements [Index]: Build hashes the current (or predicted)
// positions into cubic cells whose edge equals the smoothing radius, and
// ForEach visits every particle in the 3×3×3 block of cells around the
// queried particle's cell. Candidates are not distance filtered; kernels do
// that.
//
// Three implementations exist:
//
//   - [HashGrid]: bucket map from cell coordinate to particle indices
//   - [SortedGrid]: (cell id, index) keys sorted by a parallel bitonic
//     network, plus a per-cell offset table. The particle count must be a
//     power of two unless padding is enabled, in which case sentinel keys
//     fill the buffer and sort to the end.
//   - [BruteForce]: every particle is a candidate of every other
//
// Indices are not safe for concurrent Build. ForEach may be called from many
// goroutines once Build has returned.
package spatial
