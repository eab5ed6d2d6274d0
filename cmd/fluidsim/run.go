package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/storage"
)

var runMetrics []string

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	scene := sceneName()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []sim.Option
	var rec *storage.Recorder
	if recordDir != "" {
		rec, err = storage.NewRecorder(recordDir, recordN)
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, sim.WithObservers(rec))
	}

	exp := experiment.New(experiment.Config{
		Scene:   scene,
		Base:    cfg,
		Metrics: runMetrics,
	})
	if err := exp.Setup(experiment.NewRegistry(), slog.Default(), opts...); err != nil {
		return err
	}
	engine := exp.Engine()

	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	final := engine.Snapshot()

	if rec != nil && rec.Err() != nil {
		return fmt.Errorf("recording frames: %w", rec.Err())
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(scene, cfg, result, final)
	if err != nil {
		return err
	}
	slog.Info("run saved", "id", runID, "elapsed", elapsed, "perf", result.Perf)

	if jsonOut {
		return storage.ExportJSON(os.Stdout, scene, cfg.Solver, cfg.Dt, result, final, false)
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("scene: %s  solver: %s  index: %s  particles: %d\n", scene, cfg.Solver, cfg.Index, len(final.Particles))
	fmt.Printf("ticks: %d  sim time: %.3fs  wall: %v\n", result.StepsTaken, result.Time, elapsed.Round(time.Millisecond))
	for _, err := range result.Errors {
		fmt.Printf("error: %v\n", err)
	}
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6g\n", name, m[name])
	}
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tSOLVER\tINDEX\tN\tTICKS\tSIM TIME")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%.3fs\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Solver,
			run.Index,
			run.Particles,
			run.StepsTaken,
			run.SimTime,
		)
	}

	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	ps, err := st.LoadParticles(runID)
	if err != nil {
		return err
	}

	w, closeFn, err := output()
	if err != nil {
		return err
	}
	defer closeFn()
	return storage.WriteFrameCSV(w, sim.Frame{Tick: uint64(meta.StepsTaken), Time: meta.SimTime, Particles: ps})
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	history, times, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}
	ps, err := st.LoadParticles(runID)
	if err != nil {
		return err
	}

	result := &sim.Result{
		StepsTaken: meta.StepsTaken,
		Tick:       uint64(meta.StepsTaken),
		Time:       meta.SimTime,
		Times:      times,
		History:    history,
		Metrics:    meta.Metrics,
	}
	final := sim.Frame{Tick: result.Tick, Time: meta.SimTime, Particles: ps}

	w, closeFn, err := output()
	if err != nil {
		return err
	}
	defer closeFn()
	return storage.ExportJSON(w, meta.Scene, meta.Solver, meta.Dt, result, final, true)
}

// output returns stdout or the --out file.
func output() (*os.File, func(), error) {
	if outPath == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
