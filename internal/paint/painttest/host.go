// Package painttest provides a deterministic paint.Host for tests. Time is
// virtual and only moves when the test asks it to, so frame and delay
// ordering can be asserted exactly.
package painttest

import (
	"sort"
	"sync"
	"time"

	"github.com/kingrea/deferview/internal/paint"
)

// maxSteps bounds Settle so a scheduler bug that keeps re-posting work fails
// the test instead of hanging it.
const maxSteps = 100000

// Host is a manual paint.Host. Nothing runs until Flush, Frame, Advance or
// Settle is called.
type Host struct {
	mu         sync.Mutex
	now        time.Duration
	tasks      []func()
	frames     []*entry
	timers     []*timer
	seq        int
	dispatches int
	frameCount int
}

type entry struct {
	fn        func()
	cancelled bool
}

type timer struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// New returns a host at virtual time zero.
func New() *Host {
	return &Host{}
}

// Post implements paint.Host.
func (h *Host) Post(fn func()) {
	h.mu.Lock()
	h.tasks = append(h.tasks, fn)
	h.mu.Unlock()
}

// NextFrame implements paint.Host.
func (h *Host) NextFrame(fn func()) paint.CancelFunc {
	e := &entry{fn: fn}
	h.mu.Lock()
	h.frames = append(h.frames, e)
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		e.cancelled = true
		h.mu.Unlock()
	}
}

// After implements paint.Host.
func (h *Host) After(d time.Duration, fn func()) paint.CancelFunc {
	if d < 0 {
		d = 0
	}
	h.mu.Lock()
	h.seq++
	t := &timer{at: h.now + d, seq: h.seq, fn: fn}
	h.timers = append(h.timers, t)
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		t.cancelled = true
		h.mu.Unlock()
	}
}

// Now returns the virtual time.
func (h *Host) Now() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// Dispatch returns a counter that increases once per task, frame or timer
// run. Two callbacks observing the same value ran inside the same tick.
func (h *Host) Dispatch() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dispatches
}

// Frames returns how many paint opportunities were delivered.
func (h *Host) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frameCount
}

// Flush runs posted tasks, including tasks they post, until none remain.
func (h *Host) Flush() {
	for i := 0; i < maxSteps; i++ {
		h.mu.Lock()
		if len(h.tasks) == 0 {
			h.mu.Unlock()
			return
		}
		fn := h.tasks[0]
		h.tasks = h.tasks[1:]
		h.dispatches++
		h.mu.Unlock()
		fn()
	}
	panic("painttest: Flush did not converge")
}

// Frame delivers one paint opportunity to the requests pending before the
// call, then flushes posted tasks.
func (h *Host) Frame() {
	h.mu.Lock()
	batch := h.frames
	h.frames = nil
	h.frameCount++
	h.mu.Unlock()
	for _, e := range batch {
		h.mu.Lock()
		skip := e.cancelled
		if !skip {
			h.dispatches++
		}
		h.mu.Unlock()
		if !skip {
			e.fn()
		}
	}
	h.Flush()
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order. Posted tasks are flushed after each timer.
func (h *Host) Advance(d time.Duration) {
	h.mu.Lock()
	target := h.now + d
	h.mu.Unlock()
	for {
		t := h.popDue(target)
		if t == nil {
			break
		}
		t.fn()
		h.Flush()
	}
	h.mu.Lock()
	if h.now < target {
		h.now = target
	}
	h.mu.Unlock()
}

func (h *Host) popDue(limit time.Duration) *timer {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := h.timers[:0]
	for _, t := range h.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	h.timers = live
	if len(h.timers) == 0 {
		return nil
	}
	sort.SliceStable(h.timers, func(i, j int) bool {
		if h.timers[i].at == h.timers[j].at {
			return h.timers[i].seq < h.timers[j].seq
		}
		return h.timers[i].at < h.timers[j].at
	})
	next := h.timers[0]
	if next.at > limit {
		return nil
	}
	h.timers = h.timers[1:]
	if next.at > h.now {
		h.now = next.at
	}
	h.dispatches++
	return next
}

// Settle runs the host until nothing is pending: tasks first, then frames,
// then the earliest timer, jumping virtual time as needed.
func (h *Host) Settle() {
	for i := 0; i < maxSteps; i++ {
		h.Flush()
		h.mu.Lock()
		frames := 0
		for _, e := range h.frames {
			if !e.cancelled {
				frames++
			}
		}
		h.mu.Unlock()
		if frames > 0 {
			h.Frame()
			continue
		}
		next, ok := h.nextDeadline()
		if !ok {
			return
		}
		h.Advance(next - h.Now())
	}
	panic("painttest: Settle did not converge")
}

func (h *Host) nextDeadline() (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var (
		best  time.Duration
		found bool
	)
	for _, t := range h.timers {
		if t.cancelled {
			continue
		}
		if !found || t.at < best {
			best, found = t.at, true
		}
	}
	return best, found
}

// Idle reports whether no task, frame request or timer is pending.
func (h *Host) Idle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.tasks) > 0 {
		return false
	}
	for _, e := range h.frames {
		if !e.cancelled {
			return false
		}
	}
	for _, t := range h.timers {
		if !t.cancelled {
			return false
		}
	}
	return true
}

var _ paint.Host = (*Host)(nil)
