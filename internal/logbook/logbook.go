// Package logbook keeps the human-readable session journal shown in the demo
// footer: one line per operator action (pause, mode change, remount) or
// notable scheduler event.
package logbook

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook appends entries to a text file and mirrors them to an optional
// structured logger.
type Logbook struct {
	path   string
	mirror *slog.Logger
	clock  func() time.Time
	mu     sync.Mutex
}

// Option customizes a Logbook.
type Option func(*Logbook)

// WithMirror also sends every entry to logger.
func WithMirror(logger *slog.Logger) Option {
	return func(l *Logbook) {
		if logger != nil {
			l.mirror = logger.With("component", "journal")
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Logbook) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New creates a logbook that writes to the provided path.
func New(path string, opts ...Option) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	l := &Logbook{path: path, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry. Write failures are reported to the mirror
// logger only; the journal is best effort.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	message = strings.TrimSpace(message)
	l.mu.Lock()
	err := l.write(fmt.Sprintf("%s %-5s %s\n",
		l.clock().UTC().Format(time.RFC3339),
		string(level),
		message,
	))
	l.mu.Unlock()

	if l.mirror == nil {
		return
	}
	if err != nil {
		l.mirror.Warn("journal write failed", "path", l.path, "error", err)
	}
	l.mirror.Log(context.Background(), slogLevel(level), message)
}

func (l *Logbook) write(line string) error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(line)
	return err
}

// Tail returns up to maxLines of the most recent entries together with the
// total number of entries in the journal.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var (
		ring  []string
		total int
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		total++
		if maxLines <= 0 {
			continue
		}
		if len(ring) == maxLines {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	return ring, total
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
