package config

import "sort"

// Presets are named starting scenes. Each entry builds a fresh Config.
var Presets = map[string]func() *Config{
	"dam_break": DefaultConfig,
	"drop": func() *Config {
		c := DefaultConfig()
		c.Domain.Extents = Vec3{X: 5, Y: 8, Z: 5}
		c.Domain.Obstacle = &ObstacleConfig{Center: Vec3{Y: -4}, Radius: 2}
		c.Spawn.Min = Vec3{X: -4, Y: 0, Z: -4}
		c.Spawn.Max = Vec3{X: 4, Y: 8, Z: 4}
		return c
	},
	"pbf_column": func() *Config {
		c := DefaultConfig()
		c.Solver = "pbf"
		c.Dt = 0.016
		c.Physics.Iterations = 4
		c.Domain.Extents = Vec3{X: 3, Y: 10, Z: 3}
		c.Spawn.Min = Vec3{X: -2, Y: -10, Z: -2}
		c.Spawn.Max = Vec3{X: 2, Y: 6, Z: 2}
		c.ParticleCount = 2048
		return c
	},
	"tiny": func() *Config {
		c := DefaultConfig()
		c.ParticleCount = 512
		c.Index = "hash"
		c.Backend = "serial"
		c.Steps = 100
		c.Domain.Extents = Vec3{X: 3, Y: 3, Z: 3}
		c.Spawn.Min = Vec3{X: -2, Y: -2, Z: -2}
		c.Spawn.Max = Vec3{X: 2, Y: 2, Z: 2}
		return c
	},
}

// GetPreset returns a new copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
