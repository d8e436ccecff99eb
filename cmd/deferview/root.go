package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/deferview/internal/config"
	"github.com/kingrea/deferview/internal/logging"
	"github.com/kingrea/deferview/internal/tui"
)

// rootOptions holds the persistent flags. Flags only override the config
// file when they were set explicitly.
type rootOptions struct {
	dir       string
	mode      string
	delay     time.Duration
	batchSize int
	units     int
	logLevel  string
	logFormat string

	serveMetrics bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "deferview",
		Short: "Deferred rendering scheduler demo",
		Long: "deferview reveals a grid of deferred units through a paint-aware scheduler.\n" +
			"Settings come from .deferview/config.yaml and can be overridden by flags.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dir, "dir", "", "Project directory (default: current directory)")
	pf.StringVar(&opts.mode, "mode", "", "Scheduling mode (sequential, sync, async-concurrent)")
	pf.DurationVar(&opts.delay, "delay", 0, "Delay after each paint opportunity")
	pf.IntVar(&opts.batchSize, "batch-size", 0, "Units per batch in batched modes (0 = whole queue)")
	pf.IntVar(&opts.units, "units", 0, "Number of deferred units")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")

	root.Flags().BoolVar(&opts.serveMetrics, "serve-metrics", false, "Serve /metrics, /stats and /health while the TUI runs")

	root.AddCommand(
		newBenchCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func (o *rootOptions) projectDir() (string, error) {
	if o.dir != "" {
		return o.dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}

// loadConfig reads the project config and applies explicitly set flags.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, err := o.projectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Project.Scheduler.Mode = o.mode
	}
	if flags.Changed("delay") {
		cfg.Project.Scheduler.Delay = o.delay
	}
	if flags.Changed("batch-size") {
		cfg.Project.Scheduler.BatchSize = o.batchSize
	}
	if flags.Changed("units") {
		cfg.Project.Demo.Units = o.units
	}
	if flags.Changed("log-level") {
		cfg.Project.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Project.Logging.Format = o.logFormat
	}
	if flags.Changed("serve-metrics") {
		cfg.Project.Metrics.Enabled = o.serveMetrics
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	dir, err := opts.projectDir()
	if err != nil {
		return err
	}
	if err := config.InitProjectDir(dir); err != nil {
		return err
	}
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.ProjectDir, logging.FromConfig(cfg.Project.Logging))
	if err != nil {
		return err
	}
	defer logger.Close()

	app, err := tui.NewApp(cfg, tui.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	srv, err := startTelemetry(cmd.Context(), cfg, app.Scheduler(), logger.Logger)
	if err != nil {
		return err
	}
	if srv != nil {
		defer srv.Shutdown(context.Background())
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	app.Attach(p.Send)
	defer app.Close()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
