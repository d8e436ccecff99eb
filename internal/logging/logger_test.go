package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/deferview/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"chatty":  slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestTextHandlerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Options{Level: slog.LevelWarn})
	logger.Info("hidden")
	logger.Warn("shown", "component", "deferral")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=deferral") {
		t.Fatalf("warn record missing: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colors written without Color option: %q", out)
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, Options{Format: "json"}).Info("batch started", "size", 3)
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("json output did not parse: %v (%q)", err, buf.String())
	}
	if record["msg"] != "batch started" || record["size"] != float64(3) {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewWritesUnderProjectDir(t *testing.T) {
	projectDir := t.TempDir()
	logger, err := New(projectDir, FromConfig(config.LoggingConfig{Level: "debug"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hello", "unit", 7)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := filepath.Join(projectDir, config.Dir, "logs", "deferview.log")
	if logger.Path() != want {
		t.Fatalf("path = %s, want %s", logger.Path(), want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(string(data), "unit=7") {
		t.Fatalf("log file content %q", data)
	}
}
