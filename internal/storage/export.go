package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/telemetry"
)

// ParticleRow is one particle of one frame.
type ParticleRow struct {
	Tick     uint64  `csv:"tick" json:"-"`
	Index    int     `csv:"index" json:"index"`
	X        float64 `csv:"x" json:"x"`
	Y        float64 `csv:"y" json:"y"`
	Z        float64 `csv:"z" json:"z"`
	VX       float64 `csv:"vx" json:"vx"`
	VY       float64 `csv:"vy" json:"vy"`
	VZ       float64 `csv:"vz" json:"vz"`
	Density  float64 `csv:"density" json:"density"`
	Pressure float64 `csv:"pressure" json:"pressure"`
}

func ParticleRows(f sim.Frame) []ParticleRow {
	rows := make([]ParticleRow, len(f.Particles))
	for i, p := range f.Particles {
		rows[i] = ParticleRow{
			Tick:     f.Tick,
			Index:    i,
			X:        p.Position.X,
			Y:        p.Position.Y,
			Z:        p.Position.Z,
			VX:       p.Velocity.X,
			VY:       p.Velocity.Y,
			VZ:       p.Velocity.Z,
			Density:  p.Density,
			Pressure: p.Pressure,
		}
	}
	return rows
}

// FromRows rebuilds particles from a single frame's rows. Rows are placed
// by their index column.
func FromRows(rows []ParticleRow) []fluid.Particle {
	ps := make([]fluid.Particle, len(rows))
	for _, row := range rows {
		if row.Index < 0 || row.Index >= len(ps) {
			continue
		}
		pos := r3.Vec{X: row.X, Y: row.Y, Z: row.Z}
		ps[row.Index] = fluid.Particle{
			Position:          pos,
			PredictedPosition: pos,
			Velocity:          r3.Vec{X: row.VX, Y: row.VY, Z: row.VZ},
			Density:           row.Density,
			Pressure:          row.Pressure,
		}
	}
	return ps
}

// WriteFrameCSV writes one frame with a header row.
func WriteFrameCSV(w io.Writer, f sim.Frame) error {
	return gocsv.Marshal(ParticleRows(f), w)
}

type ExportData struct {
	Scene     string               `json:"scene"`
	Solver    string               `json:"solver"`
	Dt        float64              `json:"dt"`
	Steps     int                  `json:"steps"`
	Tick      uint64               `json:"tick"`
	Time      float64              `json:"time"`
	Times     []float64            `json:"times"`
	History   map[string][]float64 `json:"history"`
	Metrics   map[string]float64   `json:"metrics"`
	Perf      telemetry.PerfStats  `json:"perf"`
	Particles []ParticleRow        `json:"particles,omitempty"`
}

// ExportJSON writes a run summary and, if withParticles is set, the final
// frame.
func ExportJSON(w io.Writer, scene, solver string, dt float64, result *sim.Result, final sim.Frame, withParticles bool) error {
	data := ExportData{
		Scene:   scene,
		Solver:  solver,
		Dt:      dt,
		Steps:   result.StepsTaken,
		Tick:    result.Tick,
		Time:    result.Time,
		Times:   result.Times,
		History: result.History,
		Metrics: result.Metrics,
		Perf:    result.Perf,
	}
	if withParticles {
		data.Particles = ParticleRows(final)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Recorder is an observer that appends every n-th frame to frames.csv in
// dir. Close flushes and closes the file.
type Recorder struct {
	file          *os.File
	every         uint64
	headerWritten bool
	err           error
}

func NewRecorder(dir string, every int) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "frames.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating frames.csv: %w", err)
	}
	if every < 1 {
		every = 1
	}
	return &Recorder{file: f, every: uint64(every)}, nil
}

func (r *Recorder) OnStep(f sim.Frame) {
	if r.err != nil || f.Tick%r.every != 0 {
		return
	}
	rows := ParticleRows(f)
	if !r.headerWritten {
		r.err = gocsv.Marshal(rows, r.file)
		r.headerWritten = true
	} else {
		r.err = gocsv.MarshalWithoutHeaders(rows, r.file)
	}
	if r.err != nil {
		r.err = fmt.Errorf("writing frame %d: %w", f.Tick, r.err)
	}
}

// Err returns the first write error.
func (r *Recorder) Err() error { return r.err }

func (r *Recorder) Close() error {
	if err := r.file.Close(); err != nil && r.err == nil {
		return err
	}
	return r.err
}
