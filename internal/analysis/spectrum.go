package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// ErrShortSeries is returned when a series is too short to analyze.
var ErrShortSeries = errors.New("analysis: series too short")

// DominantFrequency returns the frequency in Hz of the strongest non-zero
// mode of series sampled every dt seconds, and that mode's amplitude.
// The mean is removed first.
func DominantFrequency(series []float64, dt float64) (float64, float64, error) {
	n := len(series)
	if n < 4 {
		return 0, 0, ErrShortSeries
	}
	if !(dt > 0) {
		return 0, 0, errors.New("analysis: sample interval must be positive")
	}

	mean := stat.Mean(series, nil)
	centered := make([]float64, n)
	for i, v := range series {
		centered[i] = v - mean
	}
	spectrum := fft.FFTReal(centered)

	best, bestMag := 0, 0.0
	for k := 1; k <= n/2; k++ {
		if m := cmplx.Abs(spectrum[k]); m > bestMag {
			best, bestMag = k, m
		}
	}
	if best == 0 {
		return 0, 0, nil
	}
	return float64(best) / (float64(n) * dt), 2 * bestMag / float64(n), nil
}
