// Package automation runs scripted scenarios, parameter sweeps and seed
// ensembles over the preset scenes.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/sim"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Config, when set, is a YAML file used instead
// of the preset.
type ScenarioStep struct {
	Preset  string             `yaml:"preset"`
	Config  string             `yaml:"config"`
	Steps   int                `yaml:"steps"`
	Seed    int64              `yaml:"seed"`
	Params  map[string]float64 `yaml:"params"`
	Metrics []string           `yaml:"metrics"`
	SaveAs  string             `yaml:"save_as"`
}

// StepResult pairs a scenario step with its outcome and final frame.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *sim.Result
	Final  sim.Frame
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

func (s ScenarioStep) base() (*config.Config, string, error) {
	if s.Config != "" {
		cfg, err := config.Load(s.Config)
		if err != nil {
			return nil, "", err
		}
		return cfg, s.Config, nil
	}
	cfg := config.GetPreset(s.Preset)
	if cfg == nil {
		return nil, "", fmt.Errorf("unknown preset: %q", s.Preset)
	}
	return cfg, s.Preset, nil
}

// RunScenario executes the steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *slog.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		base, name, err := step.base()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.SaveAs != "" {
			name = step.SaveAs
		}
		logger.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "scene", name)

		exp := experiment.New(experiment.Config{
			Scene:   name,
			Base:    base,
			Params:  step.Params,
			Metrics: step.Metrics,
			Steps:   step.Steps,
			Seed:    step.Seed,
		})
		if err := exp.Setup(registry, logger); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{
			Name:   name,
			Config: exp.Engine().Config(),
			Result: result,
			Final:  exp.Engine().Snapshot(),
		})
	}

	return results, nil
}

// ParameterSweep runs a preset across evenly spaced values of one
// parameter.
type ParameterSweep struct {
	Preset    string
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Steps     int
	Metrics   []string
	Parallel  int
}

type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	StepsTaken int
	Stable     bool
}

// RunSweep executes the sweep. Results are in parameter order.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one value, got %d", sweep.NumSteps)
	}
	base := config.GetPreset(sweep.Preset)
	if base == nil {
		return nil, fmt.Errorf("unknown preset: %q", sweep.Preset)
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}
	results := make([]SweepResult, sweep.NumSteps)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, sweep.Parallel))
	for i := 0; i < sweep.NumSteps; i++ {
		i := i
		paramVal := sweep.ParamMin + float64(i)*paramStep
		g.Go(func() error {
			exp := experiment.New(experiment.Config{
				Scene:   sweep.Preset,
				Base:    base,
				Params:  map[string]float64{sweep.ParamName: paramVal},
				Metrics: sweep.Metrics,
				Steps:   sweep.Steps,
			})
			if err := exp.Setup(registry, logger); err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
			}
			result, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
			}

			results[i] = SweepResult{
				ParamValue: paramVal,
				Metrics:    result.Metrics,
				StepsTaken: result.StepsTaken,
				Stable:     stable(result),
			}
			logger.Info("sweep point", "index", i+1, "of", sweep.NumSteps, sweep.ParamName, paramVal)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloConfig runs a preset over consecutive spawn seeds.
type MonteCarloConfig struct {
	Preset    string
	NumTrials int
	Steps     int
	Seed      int64
	Parallel  int
}

type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Metrics map[string]float64
	Stable  bool
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, logger *slog.Logger) ([]MonteCarloResult, error) {
	base := config.GetPreset(cfg.Preset)
	if base == nil {
		return nil, fmt.Errorf("unknown preset: %q", cfg.Preset)
	}
	if cfg.Steps > 0 {
		base.Steps = cfg.Steps
	}

	runs, err := sim.NewEnsemble(base, cfg.NumTrials, cfg.Seed, cfg.Parallel).WithLogger(logger).Run(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		results[i] = MonteCarloResult{
			TrialID: i,
			Seed:    cfg.Seed + int64(i),
			Metrics: r.Metrics,
			Stable:  stable(r),
		}
	}
	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

// stable reports whether a run finished without step errors and, when the
// containment metric was recorded, never left the box.
func stable(r *sim.Result) bool {
	if len(r.Errors) > 0 {
		return false
	}
	if c, ok := r.Metrics["containment"]; ok && c < 1 {
		return false
	}
	return true
}
