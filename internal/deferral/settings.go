package deferral

import (
	"sync"
	"time"
)

// Settings are the tunables read at every scheduling decision.
type Settings struct {
	Mode  Mode
	Delay time.Duration
	// BatchSize caps how many units a batched mode releases per cycle. Values
	// <= 0 mean the whole queue.
	BatchSize int
}

// DefaultSettings returns sequential mode with no delay.
func DefaultSettings() Settings {
	return Settings{Mode: ModeSequential}
}

// Source supplies the current settings. The scheduler never caches the
// result across decisions, so a Source may change at any time.
type Source interface {
	Settings() Settings
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Settings

// Settings implements Source.
func (f SourceFunc) Settings() Settings { return f() }

// StaticSettings is a Source that never changes.
type StaticSettings Settings

// Settings implements Source.
func (s StaticSettings) Settings() Settings { return Settings(s) }

// LiveSettings is a goroutine-safe Source that can be edited while the
// scheduler runs. Edits affect the next batch only.
type LiveSettings struct {
	mu       sync.RWMutex
	settings Settings
}

// NewLiveSettings starts from initial.
func NewLiveSettings(initial Settings) *LiveSettings {
	return &LiveSettings{settings: initial}
}

// Settings implements Source.
func (l *LiveSettings) Settings() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settings
}

// Set replaces the settings.
func (l *LiveSettings) Set(s Settings) {
	l.mu.Lock()
	l.settings = s
	l.mu.Unlock()
}

// Update edits the settings in place and returns the result.
func (l *LiveSettings) Update(fn func(*Settings)) Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.settings)
	if l.settings.Delay < 0 {
		l.settings.Delay = 0
	}
	if l.settings.BatchSize < 0 {
		l.settings.BatchSize = 0
	}
	return l.settings
}
