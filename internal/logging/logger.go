package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/kingrea/deferview/internal/config"
)

const timeFormat = "2006-01-02 15:04:05.000"

// Options selects the handler written by New and NewWithWriter.
type Options struct {
	Level slog.Level
	// Format is "text" (tint) or "json".
	Format string
	// Color enables ANSI colors for the text handler.
	Color bool
}

// Logger appends structured records to .deferview/logs/deferview.log. The
// TUI owns the terminal, so nothing is written to stdout while it runs.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates (or reuses) the log file for the given project directory.
func New(projectDir string, opts Options) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.Dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "deferview.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	opts.Color = false
	return &Logger{Logger: NewWithWriter(f, opts), file: f}, nil
}

// NewWithWriter builds a logger on an arbitrary writer.
func NewWithWriter(w io.Writer, opts Options) *slog.Logger {
	var handler slog.Handler
	switch opts.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: timeFormat,
			NoColor:    !opts.Color,
		})
	}
	return slog.New(handler)
}

// ParseLevel maps a config string to a level. Unknown values yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromConfig derives Options from the logging section of cfg.
func FromConfig(cfg config.LoggingConfig) Options {
	return Options{Level: ParseLevel(cfg.Level), Format: cfg.Format}
}

// Path returns the file backing the logger.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Since is a small helper for logging elapsed durations as an attribute.
func Since(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
