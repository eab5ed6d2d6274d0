package telemetry

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Tick          uint64  `csv:"tick"`
	AvgTickUS     int64   `csv:"avg_tick_us"`
	MinTickUS     int64   `csv:"min_tick_us"`
	MaxTickUS     int64   `csv:"max_tick_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	PredictPct    float64 `csv:"predict_pct"`
	NeighboursPct float64 `csv:"neighbours_pct"`
	HashPct       float64 `csv:"hash_pct"`
	SortPct       float64 `csv:"sort_pct"`
	ClearPct      float64 `csv:"clear_pct"`
	OffsetsPct    float64 `csv:"offsets_pct"`
	DensityPct    float64 `csv:"density_pct"`
	ForcePct      float64 `csv:"force_pct"`
	ConstraintPct float64 `csv:"constraint_pct"`
	IntegratePct  float64 `csv:"integrate_pct"`
	BoundaryPct   float64 `csv:"boundary_pct"`
	PublishPct    float64 `csv:"publish_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(tick uint64) PerfStatsCSV {
	return PerfStatsCSV{
		Tick:          tick,
		AvgTickUS:     s.AvgTickDuration.Microseconds(),
		MinTickUS:     s.MinTickDuration.Microseconds(),
		MaxTickUS:     s.MaxTickDuration.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		PredictPct:    s.PhasePct[PhasePredict],
		NeighboursPct: s.PhasePct[PhaseNeighbours],
		HashPct:       s.PhasePct[PhaseHash],
		SortPct:       s.PhasePct[PhaseSort],
		ClearPct:      s.PhasePct[PhaseClear],
		OffsetsPct:    s.PhasePct[PhaseOffsets],
		DensityPct:    s.PhasePct[PhaseDensity],
		ForcePct:      s.PhasePct[PhaseForce],
		ConstraintPct: s.PhasePct[PhaseConstraint],
		IntegratePct:  s.PhasePct[PhaseIntegrate],
		BoundaryPct:   s.PhasePct[PhaseBoundary],
		PublishPct:    s.PhasePct[PhasePublish],
	}
}
