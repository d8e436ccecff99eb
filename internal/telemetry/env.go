package telemetry

import (
	"os"
	"strconv"
	"strings"

	"github.com/kingrea/deferview/internal/config"
)

// Environment variables read by WithEnv.
const (
	EnvEnabled = "DEFERVIEW_METRICS_ENABLED"
	EnvHost    = "DEFERVIEW_METRICS_HOST"
	EnvPort    = "DEFERVIEW_METRICS_PORT"
)

// WithEnv layers DEFERVIEW_METRICS_* overrides on top of mc. Values that do
// not parse are ignored and the config value stands.
func WithEnv(mc config.MetricsConfig) config.MetricsConfig {
	return overlay(mc, os.Getenv)
}

func overlay(mc config.MetricsConfig, getenv func(string) string) config.MetricsConfig {
	if on, err := strconv.ParseBool(strings.TrimSpace(getenv(EnvEnabled))); err == nil {
		mc.Enabled = on
	}
	if host := strings.TrimSpace(getenv(EnvHost)); host != "" {
		mc.Host = host
	}
	if port, err := strconv.Atoi(strings.TrimSpace(getenv(EnvPort))); err == nil && port >= 0 && port <= 65535 {
		mc.Port = port
	}
	return mc
}
