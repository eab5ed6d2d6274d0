package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/analysis"
	"github.com/san-kum/fluidsim/internal/export"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/san-kum/fluidsim/internal/viz"
)

var (
	phaseAxes string
	svgMetric string
	svgWidth  int
	svgHeight int
)

func analyzeRun(cmd *cobra.Command, args []string) error {
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
	if len(times) == 0 {
		return fmt.Errorf("no data to analyze")
	}

	fmt.Printf("run: %s (%s, %s, %d particles)\n\n", meta.ID, meta.Scene, meta.Solver, meta.Particles)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD\tMIN\tMAX\tFINAL\tSETTLE\tFREQ")
	for _, s := range analysis.Report(history, times) {
		settle := "-"
		if !math.IsNaN(s.SettleTime) {
			settle = fmt.Sprintf("%.3fs", s.SettleTime)
		}
		freq := "-"
		if s.Frequency > 0 {
			freq = fmt.Sprintf("%.3gHz", s.Frequency)
		}
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%s\t%s\n",
			s.Name, s.Mean, s.StdDev, s.Min, s.Max, s.Final, settle, freq)
	}
	w.Flush()

	if phaseAxes != "" {
		x, y, ok := strings.Cut(phaseAxes, ",")
		if !ok {
			return fmt.Errorf("invalid --phase %q, want x_metric,y_metric", phaseAxes)
		}
		portrait, err := analysis.NewPhasePortrait(history, x, y)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(portrait.ToASCII(80, 20))
	}
	return nil
}

// exportSVG writes the final frame of a run, or one metric series when
// --metric is set.
func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	w, closeFn, err := output()
	if err != nil {
		return err
	}
	defer closeFn()

	t := viz.GetTheme(theme)
	if svgMetric != "" {
		history, times, err := st.LoadHistory(runID)
		if err != nil {
			return err
		}
		series, ok := history[svgMetric]
		if !ok {
			return fmt.Errorf("run %s has no metric %q", runID, svgMetric)
		}
		return export.SeriesToSVG(w, times, series, svgWidth, svgHeight, string(t.Primary))
	}

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	domain, err := cfg.FluidDomain()
	if err != nil {
		return err
	}
	ps, err := st.LoadParticles(runID)
	if err != nil {
		return err
	}
	frame := sim.Frame{Tick: uint64(meta.StepsTaken), Time: meta.SimTime, Particles: ps}
	return export.FrameToSVG(w, frame, export.FrameOptions{
		Width:       svgWidth,
		Height:      svgHeight,
		Theme:       t,
		Domain:      domain,
		RestDensity: cfg.Physics.RestDensity,
	})
}
