package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/automation"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/optim"
	"github.com/san-kum/fluidsim/internal/storage"
)

var (
	saveRuns bool

	sweepParam    string
	sweepMin      float64
	sweepMax      float64
	sweepPoints   int
	sweepSteps    int
	sweepParallel int
	sweepMetrics  []string

	mcTrials   int
	mcParallel int

	optParams []string
	optMetric string
)

func addAutomationCommands(root *cobra.Command) {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario of scripted runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&saveRuns, "save", true, "save each step to the data directory")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "sweep one parameter across a range",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "viscosity", "parameter to sweep ("+strings.Join(paramNames(), ", ")+")")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1.0, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 0, "ticks per run (default from preset)")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 2, "runs in flight")
	sweepCmd.Flags().StringSliceVar(&sweepMetrics, "metrics", nil, "metrics to record (default all)")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "run a preset over consecutive spawn seeds",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	mcCmd.Flags().IntVar(&mcTrials, "trials", 8, "number of runs")
	mcCmd.Flags().IntVar(&sweepSteps, "steps", 0, "ticks per run (default from preset)")
	mcCmd.Flags().Int64Var(&seed, "seed", 1, "first seed")
	mcCmd.Flags().IntVar(&mcParallel, "parallel", 2, "runs in flight")

	optCmd := &cobra.Command{
		Use:   "optimize [preset]",
		Short: "grid search parameters for the lowest metric value",
		Long: "Each --param is name=v1,v2,...; every combination is run and the one\n" +
			"with the smallest final value of --metric is reported.",
		Args: cobra.ExactArgs(1),
		RunE: runOptimize,
	}
	optCmd.Flags().StringArrayVar(&optParams, "param", nil, "name=v1,v2,... (repeatable)")
	optCmd.Flags().StringVar(&optMetric, "metric", "density_error", "metric to minimize")
	optCmd.Flags().IntVar(&sweepSteps, "steps", 0, "ticks per run (default from preset)")

	root.AddCommand(scenarioCmd, sweepCmd, mcCmd, optCmd)
}

func paramNames() []string {
	var p fluid.Params
	return p.ParamNames()
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), slog.Default())

	st := storage.New(dataDir)
	if saveRuns {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENE\tTICKS\tDENSITY ERR\tMAX SPEED\tRUN")
	for i, r := range results {
		runID := "-"
		if saveRuns {
			if runID, err = st.Save(r.Name, r.Config, r.Result, r.Final); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%.4g\t%.4g\t%s\n",
			i+1, r.Name, r.Result.StepsTaken,
			r.Result.Metrics["density_error"], r.Result.Metrics["max_speed"], runID)
	}
	w.Flush()
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Preset:    args[0],
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepPoints,
		Steps:     sweepSteps,
		Metrics:   sweepMetrics,
		Parallel:  sweepParallel,
	}, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTICKS\tSTABLE\tDENSITY ERR\tKINETIC\tMAX SPEED\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%d\t%v\t%.4g\t%.4g\t%.4g\n",
			r.ParamValue, r.StepsTaken, r.Stable,
			r.Metrics["density_error"], r.Metrics["kinetic_energy"], r.Metrics["max_speed"])
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Preset:    args[0],
		NumTrials: mcTrials,
		Steps:     sweepSteps,
		Seed:      seed,
		Parallel:  mcParallel,
	}, slog.Default())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tSTABLE\tDENSITY ERR\tKINETIC")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%v\t%.4g\t%.4g\n",
			r.TrialID, r.Seed, r.Stable, r.Metrics["density_error"], r.Metrics["kinetic_energy"])
	}
	w.Flush()

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\nstable: %d  unstable: %d\n", stable, unstable)
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(args[0])
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	if len(optParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}

	names := make([]string, 0, len(optParams))
	ranges := make([][]float64, 0, len(optParams))
	for _, arg := range optParams {
		name, values, err := parseRange(arg)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := experiment.NewRegistry()
	search := optim.NewGridSearch(names, ranges)
	best, value, err := search.Search(ctx, func(params map[string]float64) (*experiment.Experiment, error) {
		exp := experiment.New(experiment.Config{
			Scene:   args[0],
			Base:    base,
			Params:  params,
			Metrics: []string{optMetric},
			Steps:   sweepSteps,
		})
		if err := exp.Setup(registry, slog.Default()); err != nil {
			return nil, err
		}
		return exp, nil
	}, optMetric)
	if err != nil {
		return err
	}

	fmt.Printf("best %s: %.6g\n", optMetric, value)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, best[name])
	}
	if n := search.Failures(); n > 0 {
		fmt.Printf("skipped %d failing grid points\n", n)
	}
	return nil
}

// parseRange reads "name=v1,v2,...".
func parseRange(arg string) (string, []float64, error) {
	name, list, ok := strings.Cut(arg, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("invalid --param %q, want name=v1,v2", arg)
	}
	var values []float64
	for _, s := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid --param %q: %w", arg, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}
