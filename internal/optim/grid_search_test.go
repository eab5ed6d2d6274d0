package optim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
)

func TestGridSearch(t *testing.T) {
	registry := experiment.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		exp := experiment.New(experiment.Config{
			Base:    config.GetPreset("tiny"),
			Params:  params,
			Metrics: []string{"kinetic_energy"},
			Steps:   3,
		})
		return exp, exp.Setup(registry, logger)
	}

	g := NewGridSearch([]string{"gravity_y", "viscosity"}, [][]float64{{-9.81, 0}, {0.5, 1}})
	best, val, err := g.Search(context.Background(), build, "kinetic_energy")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	// without gravity a resting grid gains the least kinetic energy
	if best["gravity_y"] != 0 {
		t.Errorf("expected gravity_y 0, got %v", best)
	}
	if val < 0 {
		t.Errorf("negative kinetic energy %f", val)
	}
	if g.Failures() != 0 {
		t.Errorf("unexpected failures: %d", g.Failures())
	}
}

func TestGridSearchAllFail(t *testing.T) {
	build := func(map[string]float64) (*experiment.Experiment, error) {
		return nil, errors.New("boom")
	}
	g := NewGridSearch([]string{"viscosity"}, [][]float64{{1, 2}})
	if _, _, err := g.Search(context.Background(), build, "kinetic_energy"); !errors.Is(err, ErrNoCandidate) {
		t.Errorf("expected ErrNoCandidate, got %v", err)
	}
	if g.Failures() != 2 {
		t.Errorf("expected 2 failures, got %d", g.Failures())
	}
}

func TestGridSearchMismatch(t *testing.T) {
	g := NewGridSearch([]string{"a", "b"}, [][]float64{{1}})
	if _, _, err := g.Search(context.Background(), nil, "x"); err == nil {
		t.Error("expected error for mismatched ranges")
	}
}
