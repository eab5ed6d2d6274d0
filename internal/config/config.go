package config

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/spatial"
	"github.com/san-kum/fluidsim/internal/spawn"
)

const (
	DefaultDt              = 0.01
	DefaultSteps           = 600
	DefaultTickRate        = 60.0
	DefaultCount           = 4096
	DefaultSmoothingRadius = 1.0
	DefaultRestDensity     = 8.0
	DefaultStiffness       = 20.0
	DefaultViscosity       = 0.5
	DefaultMass            = 1.0
	DefaultDamping         = 0.3
	DefaultParticleRadius  = 0.1
	DefaultIterations      = 4
	DefaultRelaxation      = 1.0
	DefaultWallStiffness   = 500.0
)

type Config struct {
	Solver        string  `yaml:"solver"`
	Index         string  `yaml:"index"`
	Backend       string  `yaml:"backend"`
	Workers       int     `yaml:"workers"`
	PadSort       bool    `yaml:"pad_sort"`
	ParticleCount int     `yaml:"particle_count"`
	Dt            float64 `yaml:"dt"`
	Steps         int     `yaml:"steps"`
	TickRate      float64 `yaml:"tick_rate"`
	Seed          int64   `yaml:"seed"`
	ValidateState bool    `yaml:"validate_state"`

	Physics PhysicsConfig `yaml:"physics"`
	Domain  DomainConfig  `yaml:"domain"`
	Spawn   SpawnConfig   `yaml:"spawn"`
}

type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (v Vec3) R3() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

type PhysicsConfig struct {
	SmoothingRadius float64 `yaml:"smoothing_radius"`
	RestDensity     float64 `yaml:"rest_density"`
	Stiffness       float64 `yaml:"stiffness"`
	Viscosity       float64 `yaml:"viscosity"`
	Mass            float64 `yaml:"mass"`
	Gravity         Vec3    `yaml:"gravity,flow"`
	Damping         float64 `yaml:"damping"`
	ParticleRadius  float64 `yaml:"particle_radius"`
	Iterations      int     `yaml:"solver_iterations"`
	Relaxation      float64 `yaml:"relaxation"`
	WallStiffness   float64 `yaml:"wall_stiffness"`
}

type DomainConfig struct {
	Extents  Vec3            `yaml:"extents,flow"`
	Boundary string          `yaml:"boundary"`
	Obstacle *ObstacleConfig `yaml:"obstacle,omitempty"`
}

type ObstacleConfig struct {
	Center Vec3    `yaml:"center,flow"`
	Radius float64 `yaml:"radius"`
}

type SpawnConfig struct {
	Pattern  string  `yaml:"pattern"`
	Min      Vec3    `yaml:"min,flow"`
	Max      Vec3    `yaml:"max,flow"`
	Spacing  float64 `yaml:"spacing"`
	Jitter   float64 `yaml:"jitter"`
	Velocity Vec3    `yaml:"velocity,flow"`
}

// DefaultConfig is a 16³ block dam break in SPH mode.
func DefaultConfig() *Config {
	return &Config{
		Solver:        "sph",
		Index:         "bitonic",
		Backend:       "auto",
		ParticleCount: DefaultCount,
		Dt:            DefaultDt,
		Steps:         DefaultSteps,
		TickRate:      DefaultTickRate,
		Seed:          1,
		Physics: PhysicsConfig{
			SmoothingRadius: DefaultSmoothingRadius,
			RestDensity:     DefaultRestDensity,
			Stiffness:       DefaultStiffness,
			Viscosity:       DefaultViscosity,
			Mass:            DefaultMass,
			Gravity:         Vec3{Y: -9.81},
			Damping:         DefaultDamping,
			ParticleRadius:  DefaultParticleRadius,
			Iterations:      DefaultIterations,
			Relaxation:      DefaultRelaxation,
			WallStiffness:   DefaultWallStiffness,
		},
		Domain: DomainConfig{
			Extents:  Vec3{X: 8, Y: 6, Z: 4},
			Boundary: "clamp",
		},
		Spawn: SpawnConfig{
			Pattern: "jittered",
			Min:     Vec3{X: -8, Y: -6, Z: -4},
			Max:     Vec3{X: 0, Y: 2, Z: 4},
			Spacing: 0.5,
			Jitter:  0.02,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Domain.Obstacle != nil {
		ob := *c.Domain.Obstacle
		out.Domain.Obstacle = &ob
	}
	return &out
}

func (c *Config) Mode() (fluid.Mode, error) {
	return fluid.ParseMode(c.Solver)
}

// Params converts the physics section into solver parameters.
func (c *Config) Params() (fluid.Params, error) {
	mode, err := c.Mode()
	if err != nil {
		return fluid.Params{}, err
	}
	ph := c.Physics
	return fluid.Params{
		Mode:            mode,
		SmoothingRadius: ph.SmoothingRadius,
		RestDensity:     ph.RestDensity,
		Stiffness:       ph.Stiffness,
		Viscosity:       ph.Viscosity,
		Mass:            ph.Mass,
		Gravity:         ph.Gravity.R3(),
		Dt:              c.Dt,
		Damping:         ph.Damping,
		ParticleRadius:  ph.ParticleRadius,
		Iterations:      ph.Iterations,
		Relaxation:      ph.Relaxation,
		WallStiffness:   ph.WallStiffness,
	}, nil
}

func (c *Config) FluidDomain() (fluid.Domain, error) {
	walls, err := fluid.ParseWallMode(c.Domain.Boundary)
	if err != nil {
		return fluid.Domain{}, err
	}
	d := fluid.Domain{Extents: c.Domain.Extents.R3(), Walls: walls}
	if ob := c.Domain.Obstacle; ob != nil {
		d.Obstacle = &fluid.Sphere{Center: ob.Center.R3(), Radius: ob.Radius}
	}
	return d, nil
}

func (c *Config) SpawnOptions() (spawn.Options, error) {
	pattern, err := spawn.ParsePattern(c.Spawn.Pattern)
	if err != nil {
		return spawn.Options{}, err
	}
	return spawn.Options{
		Pattern:  pattern,
		Count:    c.ParticleCount,
		Region:   r3.Box{Min: c.Spawn.Min.R3(), Max: c.Spawn.Max.R3()},
		Spacing:  c.Spawn.Spacing,
		Jitter:   c.Spawn.Jitter,
		Velocity: c.Spawn.Velocity.R3(),
		Seed:     c.Seed,
	}, nil
}

// Validate rejects configurations that would run meaningless physics.
// solver_iterations <= 0 is accepted and disables the PBF projection.
func (c *Config) Validate() error {
	if c.ParticleCount <= 0 {
		return fluid.InvalidConfig("particle_count", "must be > 0, got %d", c.ParticleCount)
	}
	if c.Steps < 0 {
		return fluid.InvalidConfig("steps", "must be >= 0, got %d", c.Steps)
	}
	if c.TickRate < 0 {
		return fluid.InvalidConfig("tick_rate", "must be >= 0, got %g", c.TickRate)
	}
	params, err := c.Params()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	dom, err := c.FluidDomain()
	if err != nil {
		return err
	}
	if err := dom.Validate(params.ParticleRadius); err != nil {
		return err
	}
	if dom.Walls == fluid.WallPenalty && params.Mode != fluid.SPH {
		return fluid.InvalidConfig("domain.boundary", "penalty walls need the sph solver")
	}

	if !contains(spatial.Names(), c.Index) {
		return fluid.InvalidConfig("index", "unknown index %q", c.Index)
	}
	if c.Index == "bitonic" && !c.PadSort && !spatial.IsPowerOfTwo(c.ParticleCount) {
		return fluid.InvalidConfig("particle_count", "bitonic index needs a power of two (or pad_sort), got %d", c.ParticleCount)
	}
	if c.Backend != "" && !contains(compute.Names(), c.Backend) {
		return fluid.InvalidConfig("backend", "unknown backend %q", c.Backend)
	}

	opts, err := c.SpawnOptions()
	if err != nil {
		return err
	}
	if opts.Pattern != spawn.Random {
		if !(opts.Spacing > 0) {
			return fluid.InvalidConfig("spawn.spacing", "must be > 0, got %g", opts.Spacing)
		}
		if capacity := opts.Capacity(); capacity < c.ParticleCount {
			return fluid.InvalidConfig("spawn", "region holds %d particles, need %d", capacity, c.ParticleCount)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
