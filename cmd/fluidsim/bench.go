package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/spatial"
)

var (
	benchCounts   []int
	benchIndexes  []string
	benchBackends []string
)

// benchmark runs the resolved scene at each particle count with every
// index and backend combination.
func benchmark(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("steps") {
		base.Steps = 50
	}

	fmt.Printf("benchmarking %s solver, %d ticks per run\n\n", base.Solver, base.Steps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N\tINDEX\tBACKEND\tWORKERS\tWALL\tAVG TICK\tTICKS/SEC")

	for _, n := range benchCounts {
		for _, index := range benchIndexes {
			for _, backendName := range benchBackends {
				cfg := base.Clone()
				cfg.ParticleCount = n
				cfg.Index = index
				cfg.Backend = backendName
				if index == "bitonic" && !spatial.IsPowerOfTwo(n) {
					cfg.PadSort = true
				}

				engine, err := sim.New(cfg, sim.WithLogger(slog.Default()))
				if err != nil {
					fmt.Fprintf(w, "%d\t%s\t%s\t-\t-\t-\terror: %v\n", n, index, backendName, err)
					continue
				}

				start := time.Now()
				result, err := engine.Run(context.Background(), cfg.Steps)
				elapsed := time.Since(start)
				workerCount := engine.Workers()
				engine.Close()
				if err != nil {
					return err
				}

				slog.Debug("bench point", "n", n, "index", index, "backend", backendName, "perf", result.Perf)
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%v\t%v\t%.1f\n",
					n, index, backendName, workerCount,
					elapsed.Round(time.Millisecond),
					result.Perf.AvgTickDuration.Round(time.Microsecond),
					result.Perf.TicksPerSecond)
			}
		}
	}

	return w.Flush()
}
