package main

import (
	"fmt"
	"sort"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/storage"
)

const maxPlots = 6

func plotRun(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("no data to plot")
	}

	names := args[1:]
	if len(names) == 0 {
		for name := range history {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > maxPlots {
			names = names[:maxPlots]
		}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s (%s, %d particles)\n", meta.Scene, meta.Solver, meta.Particles)
	fmt.Printf("samples: %d over %.3fs\n\n", len(times), times[len(times)-1])

	for _, name := range names {
		data, ok := history[name]
		if !ok {
			return fmt.Errorf("run %s has no metric %q", runID, name)
		}
		if len(data) == 0 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}
