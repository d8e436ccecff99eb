// Package teahost adapts paint.Host to a Bubble Tea program. Tea models are
// single-threaded: every posted task and frame callback must run inside the
// program's Update. A pump goroutine turns queue activity and frame ticks
// into messages; the model forwards them to Host.Update, which drains the
// queue on the program goroutine.
package teahost

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tevino/abool"

	"github.com/kingrea/deferview/internal/paint"
)

// wakeMsg tells the owning host that tasks are queued.
type wakeMsg struct{ host *Host }

// frameMsg is a paint opportunity for the owning host.
type frameMsg struct{ host *Host }

// Host is a paint.Host whose callbacks run inside tea.Model.Update.
type Host struct {
	*paint.Queue

	interval     time.Duration
	framePending *abool.AtomicBool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New returns a host that offers a paint opportunity at most once per
// interval. Non-positive intervals fall back to 16ms.
func New(interval time.Duration) *Host {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Host{
		Queue:        paint.NewQueue(),
		interval:     interval,
		framePending: abool.New(),
	}
}

// Start launches the pump. send is usually (*tea.Program).Send. Calling
// Start on a running host does nothing.
func (h *Host) Start(send func(tea.Msg)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stop != nil {
		return
	}
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	go h.pump(send, h.stop, h.done)
}

// Stop ends the pump and waits for it to exit. Queued work stays queued.
func (h *Host) Stop() {
	h.mu.Lock()
	stop, done := h.stop, h.done
	h.stop, h.done = nil, nil
	h.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (h *Host) pump(send func(tea.Msg), stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-h.Wake():
			send(wakeMsg{host: h})
		case <-ticker.C:
			if !h.FramePending() || !h.framePending.SetToIf(false, true) {
				continue
			}
			send(frameMsg{host: h})
		}
	}
}

// Update runs queued work when msg belongs to this host and reports whether
// it did. Call it first thing in the model's Update.
func (h *Host) Update(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case wakeMsg:
		if msg.host != h {
			return false
		}
		h.RunTasks()
		return true
	case frameMsg:
		if msg.host != h {
			return false
		}
		h.framePending.UnSet()
		h.RunFrame()
		h.RunTasks()
		return true
	}
	return false
}

var _ paint.Host = (*Host)(nil)
