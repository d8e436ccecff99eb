package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/kingrea/deferview/internal/deferral"
)

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	dir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	if diff := cmp.Diff(deferral.DefaultSettings(), cfg.Settings()); diff != "" {
		t.Fatalf("default settings mismatch (-want +got):\n%s", diff)
	}
	if cfg.Project.Host.FrameInterval != defaultFrameInterval {
		t.Fatalf("frame interval = %s", cfg.Project.Host.FrameInterval)
	}
	if cfg.Project.Demo.Units != defaultDemoUnits {
		t.Fatalf("demo units = %d", cfg.Project.Demo.Units)
	}
}

func TestNewConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
scheduler:
  mode: async
  delay: 150ms
  batch_size: 4
host:
  frame_interval: 8ms
logging:
  level: DEBUG
  format: json
demo:
  units: 64
metrics:
  enabled: true
  port: 9100
`)
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	want := deferral.Settings{Mode: deferral.ModeAsyncConcurrent, Delay: 150 * time.Millisecond, BatchSize: 4}
	if diff := cmp.Diff(want, cfg.Settings()); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
	if cfg.Project.Scheduler.Mode != "async-concurrent" {
		t.Fatalf("mode alias not normalized: %q", cfg.Project.Scheduler.Mode)
	}
	if cfg.Project.Logging.Level != "debug" || cfg.Project.Logging.Format != "json" {
		t.Fatalf("logging not normalized: %+v", cfg.Project.Logging)
	}
	if !cfg.Project.Metrics.Enabled || cfg.Project.Metrics.Port != 9100 {
		t.Fatalf("unexpected metrics config: %+v", cfg.Project.Metrics)
	}
	if cfg.Project.Host.FrameInterval != 8*time.Millisecond || cfg.Project.Demo.Units != 64 {
		t.Fatalf("unexpected host/demo config: %+v %+v", cfg.Project.Host, cfg.Project.Demo)
	}
}

func TestNewConfigKeepsExplicitZeroUnits(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
demo:
  units: 0
metrics:
  port: 0
`)
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Demo.Units != 0 {
		t.Fatalf("demo.units: 0 became %d", cfg.Project.Demo.Units)
	}
	want := MetricsConfig{Host: DefaultMetricsHost, Port: 0}
	if diff := cmp.Diff(want, cfg.Project.Metrics); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateKeepsZeroOverrides(t *testing.T) {
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Project.Metrics.Host != DefaultMetricsHost || cfg.Project.Metrics.Port != DefaultMetricsPort {
		t.Fatalf("metrics defaults missing: %+v", cfg.Project.Metrics)
	}
	cfg.Project.Demo.Units = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Project.Demo.Units != 0 {
		t.Fatalf("Validate replaced units 0 with %d", cfg.Project.Demo.Units)
	}
}

func TestNewConfigReportsEveryProblem(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
scheduler:
  mode: eventually
  delay: -5ms
  batch_size: -1
logging:
  format: xml
`)
	_, err := NewConfig(projectDir)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected a multierror, got %T: %v", err, err)
	}
	if len(merr.Errors) != 4 {
		t.Fatalf("expected 4 problems, got %d: %v", len(merr.Errors), err)
	}
	for _, want := range []string{"scheduler.mode", "scheduler.delay", "scheduler.batch_size", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestNewConfigRejectsMalformedYaml(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, "scheduler: [unterminated")
	if _, err := NewConfig(projectDir); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestInitProjectDirWritesLoadableDefaults(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitProjectDir(projectDir); err != nil {
		t.Fatalf("InitProjectDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, Dir, "logs")); err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("default config does not load: %v", err)
	}
	if diff := cmp.Diff(deferral.DefaultSettings(), cfg.Settings()); diff != "" {
		t.Fatalf("default file settings mismatch (-want +got):\n%s", diff)
	}

	writeConfig(t, projectDir, "scheduler:\n  mode: sync\n")
	if err := InitProjectDir(projectDir); err != nil {
		t.Fatalf("second InitProjectDir: %v", err)
	}
	cfg, err = NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Settings().Mode != deferral.ModeSync {
		t.Fatalf("InitProjectDir overwrote an existing config")
	}
}

func TestSaveSchedulerRoundTrip(t *testing.T) {
	projectDir := t.TempDir()
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	want := deferral.Settings{Mode: deferral.ModeSync, Delay: 40 * time.Millisecond, BatchSize: 3}
	if err := cfg.SaveScheduler(want); err != nil {
		t.Fatalf("SaveScheduler: %v", err)
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(want, reloaded.Settings()); diff != "" {
		t.Fatalf("saved settings mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveSchedulerRejectsInvalidSettings(t *testing.T) {
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	err = cfg.SaveScheduler(deferral.Settings{Mode: deferral.ModeSync, Delay: -time.Second})
	if err == nil {
		t.Fatalf("expected negative delay to be rejected")
	}
	if _, statErr := os.Stat(cfg.ProjectConfigPath()); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("invalid settings were written to disk")
	}
}
