package automation

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/fluidsim/internal/experiment"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const scenarioYAML = `
name: smoke
description: two short tiny runs
steps:
  - preset: tiny
    steps: 2
    metrics: [density_error]
  - preset: tiny
    steps: 3
    seed: 5
    params:
      viscosity: 2
    save_as: viscous
`

func TestLoadAndRunScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smoke.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if scenario.Name != "smoke" || len(scenario.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", scenario)
	}

	results, err := RunScenario(context.Background(), scenario, experiment.NewRegistry(), quiet)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Result.StepsTaken != 2 || results[1].Result.StepsTaken != 3 {
		t.Error("step counts not honoured")
	}
	if results[1].Name != "viscous" || results[1].Config.Seed != 5 {
		t.Errorf("unexpected second result %s seed %d", results[1].Name, results[1].Config.Seed)
	}
	if _, ok := results[0].Result.Metrics["density_error"]; !ok {
		t.Error("requested metric missing")
	}
	if len(results[1].Final.Particles) != 512 {
		t.Error("final frame missing")
	}
}

func TestScenarioUnknownPreset(t *testing.T) {
	scenario := &Scenario{Name: "bad", Steps: []ScenarioStep{{Preset: "nope"}}}
	if _, err := RunScenario(context.Background(), scenario, experiment.NewRegistry(), quiet); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestRunSweep(t *testing.T) {
	sweep := &ParameterSweep{
		Preset:    "tiny",
		ParamName: "viscosity",
		ParamMin:  0.1,
		ParamMax:  0.5,
		NumSteps:  3,
		Steps:     2,
		Parallel:  2,
	}
	results, err := RunSweep(context.Background(), sweep, experiment.NewRegistry(), quiet)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []float64{0.1, 0.3, 0.5}
	for i, r := range results {
		if d := r.ParamValue - want[i]; d > 1e-12 || d < -1e-12 {
			t.Errorf("point %d: expected %f, got %f", i, want[i], r.ParamValue)
		}
		if !r.Stable || r.StepsTaken != 2 {
			t.Errorf("point %d unstable or short: %+v", i, r)
		}
	}

	sweep.ParamName = "bogus"
	if _, err := RunSweep(context.Background(), sweep, experiment.NewRegistry(), quiet); err == nil {
		t.Error("expected error for unknown param")
	}
}

func TestMonteCarlo(t *testing.T) {
	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{
		Preset:    "tiny",
		NumTrials: 3,
		Steps:     2,
		Seed:      10,
		Parallel:  3,
	}, quiet)
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	if len(results) != 3 || results[2].Seed != 12 {
		t.Fatalf("unexpected results %+v", results)
	}
	stableCount, unstableCount := MonteCarloStats(results)
	if stableCount != 3 || unstableCount != 0 {
		t.Errorf("expected 3 stable runs, got %d/%d", stableCount, unstableCount)
	}
}
