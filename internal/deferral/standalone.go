package deferral

import (
	"sync"
	"time"

	"github.com/kingrea/deferview/internal/paint"
)

// Standalone is the controller used when a unit has no scheduler above it.
// Every registration is timed on its own right away; there is no queue, so
// Pause, Resume and Advance do nothing.
type Standalone struct {
	host  paint.Host
	delay time.Duration

	mu      sync.Mutex
	lastID  ID
	handles map[ID]*paint.Handle
}

// NewStandalone times every registration with the given delay.
func NewStandalone(host paint.Host, delay time.Duration) *Standalone {
	return &Standalone{
		host:    host,
		delay:   delay,
		handles: make(map[ID]*paint.Handle),
	}
}

// Register implements Controller.
func (s *Standalone) Register(callback func()) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	id := s.lastID
	s.handles[id] = paint.Schedule(s.host, s.delay, func() {
		s.mu.Lock()
		delete(s.handles, id)
		s.mu.Unlock()
		if callback != nil {
			callback()
		}
	})
	return id
}

// Cancel implements Controller.
func (s *Standalone) Cancel(id ID) {
	s.mu.Lock()
	h := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()
	h.Cancel()
}

// Pending returns how many registrations have not fired yet.
func (s *Standalone) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Pause implements Controller.
func (s *Standalone) Pause() {}

// Resume implements Controller.
func (s *Standalone) Resume() {}

// Advance implements Controller.
func (s *Standalone) Advance() {}

var _ Controller = (*Standalone)(nil)
