package main

import (
	"context"
	"log/slog"

	"github.com/kingrea/deferview/internal/config"
	"github.com/kingrea/deferview/internal/telemetry"
)

// startTelemetry starts the metrics server when the config enables it and
// returns nil otherwise.
func startTelemetry(ctx context.Context, cfg *config.Config, source telemetry.Source, logger *slog.Logger) (*telemetry.Server, error) {
	mc := telemetry.WithEnv(cfg.Project.Metrics)
	if !mc.Enabled {
		return nil, nil
	}
	srv := telemetry.NewServer(mc, source, telemetry.WithLogger(logger))
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	return srv, nil
}
