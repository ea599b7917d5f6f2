package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != "" {
		t.Fatalf("expected no config file, got %q", cfg.Source)
	}
	if cfg.Engine.TickInterval != 50*time.Millisecond {
		t.Errorf("tick interval = %v", cfg.Engine.TickInterval)
	}
	if cfg.Engine.MaxStepsPerTick != 1000 || !cfg.Engine.Autosave {
		t.Errorf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if !strings.HasSuffix(cfg.Database.Path, "cutscene.db") {
		t.Errorf("unexpected database path %q", cfg.Database.Path)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	data := `logging:
  level: debug
  format: json
engine:
  tick_interval: 10ms
  autosave: false
database:
  path: /tmp/cutscene-test.db
sequences:
  dir: ./story
tui:
  theme: high-contrast
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CUTSCENE_ENGINE_MAX_STEPS_PER_TICK", "25")

	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Errorf("source = %q", cfg.Source)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Engine.TickInterval != 10*time.Millisecond || cfg.Engine.Autosave {
		t.Errorf("unexpected engine: %+v", cfg.Engine)
	}
	if cfg.Engine.MaxStepsPerTick != 25 {
		t.Errorf("env override ignored: %d", cfg.Engine.MaxStepsPerTick)
	}
	if cfg.Sequences.Dir != "./story" || cfg.TUI.Theme != "high-contrast" {
		t.Errorf("unexpected sequences/tui: %+v %+v", cfg.Sequences, cfg.TUI)
	}
}

func TestLoadFindsProjectFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	if err := os.WriteFile(filepath.Join(dir, "cutscene.yaml"), []byte("tui:\n  theme: mono\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TUI.Theme != "mono" || cfg.Source != "cutscene.yaml" {
		t.Fatalf("project config not used: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  tick_interval: 0s\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(nil, path); err == nil || !strings.Contains(err.Error(), "tick_interval") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := expandHome("~/saves.db"); got != filepath.Join(home, "saves.db") {
		t.Fatalf("expandHome = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Fatalf("expandHome changed absolute path: %q", got)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
