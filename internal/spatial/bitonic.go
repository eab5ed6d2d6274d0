package spatial

import (
	"math"
	"math/bits"

	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/fluid"
)

// Sentinel is the padding key. It compares greater than every real key.
const Sentinel = math.MaxUint64

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// BitonicSort sorts keys ascending in place. len(keys) must be a power of
// two. Each compare-exchange pass is one Dispatch, so passes run strictly
// one after another while the elements of a pass run in parallel.
func BitonicSort(b compute.Backend, keys []uint64) error {
	n := len(keys)
	if n <= 1 {
		return nil
	}
	if !IsPowerOfTwo(n) {
		return fluid.InvalidConfig("particle_count", "bitonic sort needs a power of two, got %d", n)
	}

	for k := 2; k <= n; k <<= 1 {
		for j := k >> 1; j > 0; j >>= 1 {
			err := b.Dispatch(n, func(start, end int) error {
				compareExchange(keys, start, end, j, k)
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// compareExchange handles the pairs (i, i^j) owned by i in [start, end).
// Only the lower index of a pair touches it, so ranges never overlap.
func compareExchange(keys []uint64, start, end, j, k int) {
	for i := start; i < end; i++ {
		l := i ^ j
		if l <= i {
			continue
		}
		ascending := i&k == 0
		if (keys[i] > keys[l]) == ascending {
			keys[i], keys[l] = keys[l], keys[i]
		}
	}
}
