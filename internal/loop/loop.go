// Package loop is a standalone paint host: one goroutine that runs posted
// tasks as they arrive and delivers paint opportunities on a fixed tick.
// It backs the bench command and any caller that has no UI framework of
// its own.
package loop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"

	"github.com/kingrea/deferview/internal/paint"
)

// DefaultFrameInterval approximates a 60Hz display.
const DefaultFrameInterval = 16 * time.Millisecond

// ErrAlreadyRunning is returned when Run is called while another Run is active.
var ErrAlreadyRunning = errors.New("loop: already running")

// Loop is a paint.Host driven by Run.
type Loop struct {
	*paint.Queue

	interval time.Duration
	logger   *slog.Logger
	running  *abool.AtomicBool
	frames   atomic.Uint64
}

// Option customizes a Loop.
type Option func(*Loop)

// WithFrameInterval sets the spacing between paint opportunities.
func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger overrides the default discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a loop that is not yet running. Work may be posted before Run;
// it executes once Run starts.
func New(opts ...Option) *Loop {
	l := &Loop{
		Queue:    paint.NewQueue(),
		interval: DefaultFrameInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		running:  abool.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	l.logger = l.logger.With("component", "loop")
	return l
}

// Run executes tasks and frames on the calling goroutine until ctx is done.
// It returns nil on a clean shutdown.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.SetToIf(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.UnSet()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	l.logger.Debug("loop started", "frame_interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			tasks, frames := l.Pending()
			l.logger.Debug("loop stopped", "frames", l.frames.Load(), "pending_tasks", tasks, "pending_frames", frames)
			return nil
		case <-l.Wake():
			l.RunTasks()
		case <-ticker.C:
			if !l.FramePending() {
				continue
			}
			l.frames.Add(1)
			l.RunFrame()
			l.RunTasks()
		}
	}
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.IsSet()
}

// Frames returns how many paint opportunities have been delivered.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

var _ paint.Host = (*Loop)(nil)
