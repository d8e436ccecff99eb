package paint

import (
	"sync"
	"time"

	"github.com/tevino/abool"
)

// Queue is the bookkeeping shared by concrete hosts: posted tasks, frame
// requests and delay timers. It implements Host; the embedding host decides
// when to call RunTasks and RunFrame from its own goroutine.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	frames []*frameRequest
	wake   chan struct{}
}

type frameRequest struct {
	fn        func()
	cancelled bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Wake receives a value whenever tasks are waiting to run.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Post implements Host.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	q.signal()
}

// NextFrame implements Host.
func (q *Queue) NextFrame(fn func()) CancelFunc {
	if fn == nil {
		return noopCancel
	}
	req := &frameRequest{fn: fn}
	q.mu.Lock()
	q.frames = append(q.frames, req)
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		req.cancelled = true
		q.mu.Unlock()
	}
}

// After implements Host. The timer goroutine only posts fn back into the
// queue, so fn still runs on the host goroutine.
func (q *Queue) After(d time.Duration, fn func()) CancelFunc {
	if fn == nil {
		return noopCancel
	}
	stopped := abool.New()
	timer := time.AfterFunc(d, func() {
		q.Post(func() {
			if stopped.IsSet() {
				return
			}
			fn()
		})
	})
	return func() {
		stopped.Set()
		timer.Stop()
	}
}

// RunTasks runs the tasks that were queued when it was called and returns how
// many ran. Tasks posted while it runs are left for the next wake-up.
func (q *Queue) RunTasks() int {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}

	q.mu.Lock()
	more := len(q.tasks) > 0
	q.mu.Unlock()
	if more {
		q.signal()
	}
	return len(batch)
}

// RunFrame delivers a paint opportunity to every live frame request made
// before the call and returns how many callbacks ran.
func (q *Queue) RunFrame() int {
	q.mu.Lock()
	batch := q.frames
	q.frames = nil
	q.mu.Unlock()

	ran := 0
	for _, req := range batch {
		q.mu.Lock()
		cancelled := req.cancelled
		q.mu.Unlock()
		if cancelled {
			continue
		}
		req.fn()
		ran++
	}
	return ran
}

// FramePending reports whether a frame request is waiting.
func (q *Queue) FramePending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, req := range q.frames {
		if !req.cancelled {
			return true
		}
	}
	return false
}

// Pending returns the number of queued tasks and live frame requests.
func (q *Queue) Pending() (tasks, frames int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, req := range q.frames {
		if !req.cancelled {
			frames++
		}
	}
	return len(q.tasks), frames
}

var _ Host = (*Queue)(nil)
