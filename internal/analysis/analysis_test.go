package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	series := make([]float64, 400)
	for i := range series {
		series[i] = 5 + 2*math.Sin(2*math.Pi*2.5*float64(i)*dt)
	}

	f, amp, err := DominantFrequency(series, dt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f-2.5) > 0.01 {
		t.Errorf("expected 2.5 Hz, got %g", f)
	}
	if math.Abs(amp-2) > 0.05 {
		t.Errorf("expected amplitude 2, got %g", amp)
	}
}

func TestDominantFrequencyFlat(t *testing.T) {
	f, amp, err := DominantFrequency([]float64{3, 3, 3, 3, 3, 3}, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if f != 0 || amp != 0 {
		t.Errorf("flat series should have no mode, got %g Hz amp %g", f, amp)
	}
}

func TestDominantFrequencyErrors(t *testing.T) {
	if _, _, err := DominantFrequency([]float64{1, 2}, 0.1); !errors.Is(err, ErrShortSeries) {
		t.Errorf("expected ErrShortSeries, got %v", err)
	}
	if _, _, err := DominantFrequency([]float64{1, 2, 3, 4}, 0); err == nil {
		t.Error("expected error for zero dt")
	}
}

func TestSettleTime(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4, 5}
	series := []float64{10, 4, 1.5, 1.05, 0.98, 1}

	if got := SettleTime(times, series, 0.1); got != 3 {
		t.Errorf("expected settle at 3, got %g", got)
	}
	if got := SettleTime(times, series, 100); got != 0 {
		t.Errorf("wide band should settle immediately, got %g", got)
	}
	if !math.IsNaN(SettleTime(nil, nil, 1)) {
		t.Error("empty series should be NaN")
	}
}

func TestReport(t *testing.T) {
	times := []float64{0, 0.1, 0.2, 0.3}
	history := map[string][]float64{
		"max_speed":      {1, 2, 3, 4},
		"kinetic_energy": {4, 4, 4, 4},
	}

	report := Report(history, times)
	if len(report) != 2 || report[0].Name != "kinetic_energy" {
		t.Fatalf("expected sorted report, got %+v", report)
	}
	ke := report[0]
	if ke.Mean != 4 || ke.StdDev != 0 || ke.Final != 4 {
		t.Errorf("unexpected kinetic energy summary: %+v", ke)
	}
	speed := report[1]
	if speed.Min != 1 || speed.Max != 4 || speed.Mean != 2.5 {
		t.Errorf("unexpected max speed summary: %+v", speed)
	}
	if speed.SettleTime != 0.3 {
		t.Errorf("rising series settles at the last sample, got %g", speed.SettleTime)
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	s := Summarize("x", []float64{0}, []float64{7})
	if s.StdDev != 0 || s.Mean != 7 || s.SettleTime != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestPhasePortrait(t *testing.T) {
	history := map[string][]float64{
		"kinetic_energy": {0, 1, 2, 3},
		"density_error":  {3, 2, 1},
	}
	p, err := NewPhasePortrait(history, "kinetic_energy", "density_error")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Points) != 3 {
		t.Errorf("expected the shorter length, got %d", len(p.Points))
	}

	out := p.ToASCII(20, 8)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("expected caption plus 8 rows, got %d", len(lines))
	}
	plot := strings.Join(lines[1:], "\n")
	if strings.Count(plot, "•") != 2 || strings.Count(plot, "o") != 1 {
		t.Errorf("unexpected plot:\n%s", out)
	}

	if _, err := NewPhasePortrait(history, "nope", "density_error"); err == nil {
		t.Error("expected error for unknown metric")
	}
}
