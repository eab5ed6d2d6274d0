// Package storage keeps simulation runs on disk. Each run is a directory
// holding metadata.json, the scene's config.yaml, the metric history, the
// final particle frame and the timing summary.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/telemetry"
)

const (
	metadataFile  = "metadata.json"
	configFile    = "config.yaml"
	historyFile   = "history.csv"
	particlesFile = "particles.csv"
	perfFile      = "perf.csv"
)

// ErrRunNotFound indicates a run ID with no metadata on disk.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Timestamp  time.Time          `json:"timestamp"`
	Solver     string             `json:"solver"`
	Index      string             `json:"index"`
	Backend    string             `json:"backend"`
	Seed       int64              `json:"seed"`
	Particles  int                `json:"particles"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	StepsTaken int                `json:"steps_taken"`
	SimTime    float64            `json:"sim_time"`
	Metrics    map[string]float64 `json:"metrics"`
	Errors     []string           `json:"errors,omitempty"`
}

// HistoryRow is one metric sample in long format.
type HistoryRow struct {
	Tick   int     `csv:"tick"`
	Time   float64 `csv:"time"`
	Metric string  `csv:"metric"`
	Value  float64 `csv:"value"`
}

// Save writes a completed run and returns its ID.
func (s *Store) Save(scene string, cfg *config.Config, result *sim.Result, final sim.Frame) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", scene, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Scene:      scene,
		Timestamp:  now,
		Solver:     cfg.Solver,
		Index:      cfg.Index,
		Backend:    cfg.Backend,
		Seed:       cfg.Seed,
		Particles:  len(final.Particles),
		Dt:         cfg.Dt,
		Steps:      cfg.Steps,
		StepsTaken: result.StepsTaken,
		SimTime:    result.Time,
		Metrics:    result.Metrics,
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, historyFile), HistoryRows(result)); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, particlesFile), ParticleRows(final)); err != nil {
		return "", err
	}
	perf := []telemetry.PerfStatsCSV{result.Perf.ToCSV(result.Tick)}
	if err := writeCSV(filepath.Join(runDir, perfFile), perf); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadHistory returns each metric's series and the tick times.
func (s *Store) LoadHistory(runID string) (map[string][]float64, []float64, error) {
	var rows []HistoryRow
	if err := readCSV(filepath.Join(s.baseDir, runID, historyFile), &rows); err != nil {
		return nil, nil, err
	}

	history := make(map[string][]float64)
	times := make([]float64, 0)
	lastTick := -1
	for _, row := range rows {
		history[row.Metric] = append(history[row.Metric], row.Value)
		if row.Tick != lastTick {
			times = append(times, row.Time)
			lastTick = row.Tick
		}
	}
	return history, times, nil
}

// LoadParticles returns the final frame of a run.
func (s *Store) LoadParticles(runID string) ([]fluid.Particle, error) {
	var rows []ParticleRow
	if err := readCSV(filepath.Join(s.baseDir, runID, particlesFile), &rows); err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

// HistoryRows flattens a result's metric history, sorted by tick then
// metric name.
func HistoryRows(result *sim.Result) []HistoryRow {
	names := make([]string, 0, len(result.History))
	for name := range result.History {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]HistoryRow, 0, len(names)*len(result.Times))
	for i, t := range result.Times {
		for _, name := range names {
			series := result.History[name]
			if i >= len(series) {
				continue
			}
			rows = append(rows, HistoryRow{Tick: i + 1, Time: t, Metric: name, Value: series[i]})
		}
	}
	return rows
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return nil
}
