package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/san-kum/fluidsim/internal/fluid"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Solver != "sph" {
		t.Errorf("expected solver sph, got %s", cfg.Solver)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestPresetsValid(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s: nil", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestGetPresetIsCopy(t *testing.T) {
	a := GetPreset("drop")
	a.Domain.Obstacle.Radius = 100
	if b := GetPreset("drop"); b.Domain.Obstacle.Radius == 100 {
		t.Error("presets must not share state")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(c *Config)
		field string
	}{
		{"zero radius", func(c *Config) { c.Physics.SmoothingRadius = 0 }, "smoothing_radius"},
		{"negative radius", func(c *Config) { c.Physics.SmoothingRadius = -0.5 }, "smoothing_radius"},
		{"zero mass", func(c *Config) { c.Physics.Mass = 0 }, "mass"},
		{"non power of two", func(c *Config) { c.ParticleCount = 4000 }, "particle_count"},
		{"zero count", func(c *Config) { c.ParticleCount = 0 }, "particle_count"},
		{"damping", func(c *Config) { c.Physics.Damping = -0.1 }, "damping"},
		{"small box", func(c *Config) { c.Domain.Extents.Z = 0.05 }, "extents.z"},
		{"penalty pbf", func(c *Config) { c.Solver = "pbf"; c.Domain.Boundary = "penalty" }, "domain.boundary"},
		{"unknown index", func(c *Config) { c.Index = "octree" }, "index"},
		{"unknown backend", func(c *Config) { c.Backend = "cuda" }, "backend"},
		{"spawn too small", func(c *Config) { c.Spawn.Spacing = 2 }, "spawn"},
		{"bad boundary", func(c *Config) { c.Domain.Boundary = "sticky" }, "boundary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(cfg)
			err := cfg.Validate()
			var ce *fluid.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ce.Field)
			}
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name string
		mut  func(c *Config)
	}{
		{"padded sort", func(c *Config) { c.ParticleCount = 4000; c.PadSort = true }},
		{"hash index any count", func(c *Config) { c.ParticleCount = 1000; c.Index = "hash" }},
		{"zero iterations", func(c *Config) { c.Solver = "pbf"; c.Physics.Iterations = 0 }},
		{"penalty sph", func(c *Config) { c.Domain.Boundary = "penalty" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mut(cfg)
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: %v", tt.name, err)
		}
	}
}

func TestUnknownSolver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver = "flip"
	if err := cfg.Validate(); !errors.Is(err, fluid.ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	cfg := GetPreset("drop")
	cfg.Physics.Viscosity = 0.75

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Physics.Viscosity != 0.75 {
		t.Errorf("expected viscosity 0.75, got %f", got.Physics.Viscosity)
	}
	if got.Domain.Obstacle == nil || got.Domain.Obstacle.Center.Y != -4 {
		t.Errorf("obstacle lost in round trip: %+v", got.Domain.Obstacle)
	}
	if got.Physics.Gravity.Y != -9.81 {
		t.Errorf("expected gravity -9.81, got %f", got.Physics.Gravity.Y)
	}
}

func TestParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver = "pbf"
	p, err := cfg.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p.Mode != fluid.PBF || p.Dt != cfg.Dt || p.Gravity.Y != -9.81 {
		t.Errorf("unexpected params %+v", p)
	}
}
