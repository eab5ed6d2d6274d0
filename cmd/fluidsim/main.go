package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/spatial"
	"github.com/san-kum/fluidsim/internal/viz"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	logFile   string

	// scene selection and overrides
	preset     string
	configFile string
	solverName string
	indexName  string
	backend    string
	workers    int
	particles  int
	dt         float64
	steps      int
	seed       int64
	padSort    bool
	validate   bool

	theme     string
	tickRate  float64
	recordDir string
	recordN   int
	jsonOut   bool
	outPath   string
)

// main registers the fluidsim commands. With no subcommand it opens the
// interactive preset picker.
func main() {
	rootCmd := &cobra.Command{
		Use:           "fluidsim",
		Short:         "particle fluid simulation (SPH and PBF)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(theme, slog.Default())
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fluidsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a file instead of stderr")
	rootCmd.Flags().StringVar(&theme, "theme", "ocean", "colour theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene headless and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().StringVar(&recordDir, "record", "", "write sampled frames to this directory")
	runCmd.Flags().IntVar(&recordN, "record-every", 10, "record every n-th tick")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the run summary as JSON")
	runCmd.Flags().StringSliceVar(&runMetrics, "metrics", nil, "metrics to record (default all)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id] [metric...]",
		Short: "plot a run's metric history",
		Args:  cobra.MinimumNArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run's final particle frame to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run's history and final frame to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summarize a run's metric history",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&phaseAxes, "phase", "", "plot one metric against another (x_metric,y_metric)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a run's final frame (or a metric) as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().StringVar(&svgMetric, "metric", "", "plot this metric instead of the frame")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")
	exportSVGCmd.Flags().StringVar(&theme, "theme", "ocean", "colour theme")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark neighbour indexes and backends",
		Args:  cobra.NoArgs,
		RunE:  benchmark,
	}
	addSceneFlags(benchCmd)
	benchCmd.Flags().IntSliceVar(&benchCounts, "counts", []int{512, 1024, 2048, 4096}, "particle counts")
	benchCmd.Flags().StringSliceVar(&benchIndexes, "indexes", spatial.Names(), "neighbour indexes")
	benchCmd.Flags().StringSliceVar(&benchBackends, "backends", []string{"serial", "cpu"}, "compute backends")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene with the terminal live view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)
	liveCmd.Flags().StringVar(&theme, "theme", "ocean", "colour theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	liveCmd.Flags().Float64Var(&tickRate, "tick-rate", 0, "ticks per second (default from config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run a scene and stream frames over WebSocket",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	addSceneFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().Float64Var(&tickRate, "tick-rate", 0, "ticks per second (default from config)")
	serveCmd.Flags().Float64Var(&broadcastHz, "broadcast-hz", 30, "frames sent per second")
	serveCmd.Flags().IntVar(&maxStreamed, "max-particles", 4096, "particles per streamed frame")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the resolved scene config as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return config.Save(args[0], cfg)
		},
	}
	addSceneFlags(configCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, exportCmd, exportCSVCmd, exportJSONCmd,
		exportSVGCmd, benchCmd, liveCmd, serveCmd, presetsCmd, configCmd)
	addAutomationCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "start from a preset ("+strings.Join(config.ListPresets(), ", ")+")")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&solverName, "solver", "sph", "solver mode (sph, pbf)")
	f.StringVar(&indexName, "index", "bitonic", "neighbour index ("+strings.Join(spatial.Names(), ", ")+")")
	f.StringVar(&backend, "backend", "auto", "compute backend ("+strings.Join(compute.Names(), ", ")+")")
	f.IntVar(&workers, "workers", 0, "worker goroutines (0 = all CPUs)")
	f.IntVarP(&particles, "particles", "n", config.DefaultCount, "particle count")
	f.Float64Var(&dt, "dt", config.DefaultDt, "time step")
	f.IntVar(&steps, "steps", config.DefaultSteps, "ticks to run")
	f.Int64Var(&seed, "seed", 1, "spawn seed")
	f.BoolVar(&padSort, "pad-sort", false, "pad the bitonic sort to a power of two")
	f.BoolVar(&validate, "validate", false, "check particle state after every tick")
}

// resolveConfig starts from the config file, else the preset, else the
// defaults, and applies every flag the user set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	f := cmd.Flags()
	if f.Changed("solver") {
		cfg.Solver = solverName
	}
	if f.Changed("index") {
		cfg.Index = indexName
	}
	if f.Changed("backend") {
		cfg.Backend = backend
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	if f.Changed("particles") {
		cfg.ParticleCount = particles
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("steps") {
		cfg.Steps = steps
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("pad-sort") {
		cfg.PadSort = padSort
	}
	if f.Changed("validate") {
		cfg.ValidateState = validate
	}
	return cfg, cfg.Validate()
}

func sceneName() string {
	switch {
	case configFile != "":
		return strings.TrimSuffix(strings.TrimSuffix(baseName(configFile), ".yaml"), ".yml")
	case preset != "":
		return preset
	}
	return "custom"
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func setupLogger(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w = f
	} else if cmd.Name() == "live" || cmd == cmd.Root() {
		// the terminal belongs to the live view
		w = io.Discard
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch logFormat {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("invalid log format %q", logFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
