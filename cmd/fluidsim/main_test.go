package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/config"
)

func sceneCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	preset, configFile = "", ""
	cmd := &cobra.Command{Use: "test"}
	addSceneFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveConfig(sceneCommand(t))
	if err != nil {
		t.Fatal(err)
	}
	want := config.DefaultConfig()
	if cfg.Solver != want.Solver || cfg.ParticleCount != want.ParticleCount || cfg.Dt != want.Dt {
		t.Errorf("expected defaults, got solver=%s n=%d dt=%g", cfg.Solver, cfg.ParticleCount, cfg.Dt)
	}
	if sceneName() != "custom" {
		t.Errorf("expected scene custom, got %s", sceneName())
	}
}

func TestResolveConfigPresetOverrides(t *testing.T) {
	cfg, err := resolveConfig(sceneCommand(t, "--preset", "tiny", "--solver", "pbf", "--steps", "7"))
	if err != nil {
		t.Fatal(err)
	}
	tiny := config.GetPreset("tiny")
	if cfg.Solver != "pbf" {
		t.Errorf("expected solver override, got %s", cfg.Solver)
	}
	if cfg.Steps != 7 {
		t.Errorf("expected 7 steps, got %d", cfg.Steps)
	}
	if cfg.ParticleCount != tiny.ParticleCount {
		t.Errorf("unset flag replaced preset count: %d", cfg.ParticleCount)
	}
	if sceneName() != "tiny" {
		t.Errorf("expected scene tiny, got %s", sceneName())
	}
}

func TestResolveConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dam.yaml")
	if err := config.Save(path, config.GetPreset("tiny")); err != nil {
		t.Fatal(err)
	}
	cfg, err := resolveConfig(sceneCommand(t, "--config", path, "--dt", "0.005"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dt != 0.005 {
		t.Errorf("expected dt 0.005, got %g", cfg.Dt)
	}
	if sceneName() != "dam" {
		t.Errorf("expected scene dam, got %s", sceneName())
	}
}

func TestResolveConfigRejectsInvalid(t *testing.T) {
	if _, err := resolveConfig(sceneCommand(t, "--preset", "nope")); err == nil {
		t.Error("expected unknown preset error")
	}
	if _, err := resolveConfig(sceneCommand(t, "--dt", "-1")); err == nil {
		t.Error("expected invalid dt error")
	}
}

func TestParseRange(t *testing.T) {
	name, values, err := parseRange("viscosity=0.1, 0.5,1")
	if err != nil {
		t.Fatal(err)
	}
	if name != "viscosity" || len(values) != 3 || values[1] != 0.5 {
		t.Errorf("unexpected parse: %s %v", name, values)
	}

	for _, bad := range []string{"viscosity", "=1,2", "viscosity=", "viscosity=a,b"} {
		if _, _, err := parseRange(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
