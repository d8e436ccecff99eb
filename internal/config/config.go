// internal/config/config.go
//
// This package handles configuration and the .deferview directory structure.
// Running deferview in a directory creates .deferview/ there, holding the
// config file, logs and the session journal.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/deferview/internal/deferral"
)

const (
	// Dir is the name of the directory created in each project.
	Dir = ".deferview"

	defaultFrameInterval = 16 * time.Millisecond
	defaultDemoUnits     = 1000
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"

	// DefaultMetricsHost and DefaultMetricsPort locate the metrics endpoint
	// when the file leaves them out.
	DefaultMetricsHost = "127.0.0.1"
	DefaultMetricsPort = 9465
)

const defaultProjectConfigYAML = `# deferview configuration
version: 1

# How deferred units are released.
#   mode: sequential | sync | async-concurrent
#   delay: wait after the paint opportunity, e.g. 0s, 50ms
#   batch_size: units per batch in sync and async-concurrent modes (0 = whole queue)
scheduler:
  mode: sequential
  delay: 0s
  batch_size: 0

host:
  frame_interval: 16ms

logging:
  level: info    # debug | info | warn | error
  format: text   # text | json

demo:
  units: 1000

# Optional HTTP endpoint serving /metrics, /stats and /health while running.
metrics:
  enabled: false
  host: 127.0.0.1
  port: 9465
`

// SchedulerConfig mirrors deferral.Settings in file form.
type SchedulerConfig struct {
	Mode      string        `yaml:"mode"`
	Delay     time.Duration `yaml:"delay"`
	BatchSize int           `yaml:"batch_size"`
}

// HostConfig tunes the paint host.
type HostConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
}

// LoggingConfig selects level and handler for the log file.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DemoConfig sizes the interactive demo.
type DemoConfig struct {
	Units int `yaml:"units"`
}

// MetricsConfig controls the optional metrics HTTP server. Port 0 binds an
// ephemeral port.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// ProjectConfig models .deferview/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Host      HostConfig      `yaml:"host"`
	Logging   LoggingConfig   `yaml:"logging"`
	Demo      DemoConfig      `yaml:"demo"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// Config holds the runtime configuration for deferview.
type Config struct {
	// ProjectDir is the directory deferview was started from.
	ProjectDir string

	// StateDir is ProjectDir/.deferview
	StateDir string

	Project ProjectConfig
}

// InitProjectDir creates the .deferview directory structure and writes the
// default config file if none exists.
//
// .deferview/
// ├── config.yaml
// └── logs/
func InitProjectDir(projectDir string) error {
	root := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(filepath.Join(root, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", root, err)
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig loads the project config, falling back to defaults when the file
// does not exist.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, Dir),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// JournalPath returns the session journal shown in the demo footer.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// Settings converts the scheduler section. The config has been validated on
// load, so the mode always parses.
func (c *Config) Settings() deferral.Settings {
	mode, err := deferral.ParseMode(c.Project.Scheduler.Mode)
	if err != nil {
		mode = deferral.ModeSequential
	}
	return deferral.Settings{
		Mode:      mode,
		Delay:     c.Project.Scheduler.Delay,
		BatchSize: c.Project.Scheduler.BatchSize,
	}
}

// ApplySettings replaces the scheduler section in memory.
func (c *Config) ApplySettings(s deferral.Settings) {
	c.Project.Scheduler = SchedulerConfig{
		Mode:      s.Mode.String(),
		Delay:     s.Delay,
		BatchSize: s.BatchSize,
	}
}

// SaveScheduler stores s as the scheduler section and persists the whole
// config back to .deferview/config.yaml.
func (c *Config) SaveScheduler(s deferral.Settings) error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.ApplySettings(s)
	return c.saveProjectConfig()
}

// Validate checks the in-memory config, e.g. after command-line overrides.
// Zero values set by the caller are kept, so an override of --units 0 means
// no units rather than the default.
func (c *Config) Validate() error {
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	// Keys missing from the file keep their defaults; keys present keep
	// their value even when it is zero.
	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{
		Demo:    DemoConfig{Units: defaultDemoUnits},
		Metrics: MetricsConfig{Host: DefaultMetricsHost, Port: DefaultMetricsPort},
	}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Scheduler.Mode == "" {
		pc.Scheduler.Mode = deferral.ModeSequential.String()
	}
	if pc.Host.FrameInterval == 0 {
		pc.Host.FrameInterval = defaultFrameInterval
	}
	if pc.Logging.Level == "" {
		pc.Logging.Level = defaultLogLevel
	}
	if pc.Logging.Format == "" {
		pc.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(pc.Metrics.Host) == "" {
		pc.Metrics.Host = DefaultMetricsHost
	}
}

func (pc *ProjectConfig) normalize() {
	if mode, err := deferral.ParseMode(pc.Scheduler.Mode); err == nil {
		pc.Scheduler.Mode = mode.String()
	}
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	pc.Logging.Format = strings.ToLower(strings.TrimSpace(pc.Logging.Format))
	pc.Metrics.Host = strings.TrimSpace(pc.Metrics.Host)
}

// validate reports every problem at once rather than stopping at the first.
func (pc *ProjectConfig) validate() error {
	var result *multierror.Error
	if pc.Version < 1 {
		result = multierror.Append(result, fmt.Errorf("version must be >= 1"))
	}
	if _, err := deferral.ParseMode(pc.Scheduler.Mode); err != nil {
		result = multierror.Append(result, fmt.Errorf("scheduler.mode: %w", err))
	}
	if pc.Scheduler.Delay < 0 {
		result = multierror.Append(result, fmt.Errorf("scheduler.delay must be >= 0, got %s", pc.Scheduler.Delay))
	}
	if pc.Scheduler.BatchSize < 0 {
		result = multierror.Append(result, fmt.Errorf("scheduler.batch_size must be >= 0, got %d", pc.Scheduler.BatchSize))
	}
	if pc.Host.FrameInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("host.frame_interval must be > 0, got %s", pc.Host.FrameInterval))
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", pc.Logging.Level))
	}
	switch pc.Logging.Format {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format must be text or json, got %q", pc.Logging.Format))
	}
	if pc.Demo.Units < 0 {
		result = multierror.Append(result, fmt.Errorf("demo.units must be >= 0, got %d", pc.Demo.Units))
	}
	if pc.Metrics.Port < 0 || pc.Metrics.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("metrics.port must be within 0-65535, got %d", pc.Metrics.Port))
	}
	return result.ErrorOrNil()
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) saveProjectConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
