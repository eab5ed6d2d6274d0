package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	Name   string
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Final  float64
	// SettleTime is the first time after which the series stays within the
	// settle tolerance of its final value. NaN if unknown.
	SettleTime float64
	// Frequency and Amplitude of the dominant mode, zero when flat.
	Frequency float64
	Amplitude float64
}

// DefaultSettleTolerance is the settle band as a fraction of the series
// range.
const DefaultSettleTolerance = 0.05

func Summarize(name string, times, series []float64) Summary {
	s := Summary{Name: name, SettleTime: math.NaN()}
	if len(series) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(series, nil)
	if len(series) < 2 {
		s.StdDev = 0
	}
	s.Min = floats.Min(series)
	s.Max = floats.Max(series)
	s.Final = series[len(series)-1]

	if len(times) == len(series) {
		s.SettleTime = SettleTime(times, series, DefaultSettleTolerance*(s.Max-s.Min))
		if len(times) > 1 {
			dt := (times[len(times)-1] - times[0]) / float64(len(times)-1)
			s.Frequency, s.Amplitude, _ = DominantFrequency(series, dt)
		}
	}
	return s
}

// SettleTime returns the earliest times[k] such that every later sample
// lies within tol of the final value.
func SettleTime(times, series []float64, tol float64) float64 {
	n := min(len(times), len(series))
	if n == 0 {
		return math.NaN()
	}
	final := series[n-1]
	k := n - 1
	for k > 0 && math.Abs(series[k-1]-final) <= tol {
		k--
	}
	return times[k]
}

// Report summarizes every metric in history, sorted by name.
func Report(history map[string][]float64, times []float64) []Summary {
	names := make([]string, 0, len(history))
	for name := range history {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		out = append(out, Summarize(name, times, history[name]))
	}
	return out
}
