package paint

import (
	"sync"
	"time"
)

type phase int

const (
	phaseFrame phase = iota // waiting for the paint opportunity
	phaseDelay              // frame seen, waiting for the delay timer
	phaseFired
	phaseCancelled
)

// Handle tracks one scheduled action through both waits. It holds the cancel
// functions of the frame request and of the delay timer so a single Cancel
// stops whichever one is outstanding.
type Handle struct {
	mu          sync.Mutex
	phase       phase
	cancelFrame CancelFunc
	cancelDelay CancelFunc
}

// Schedule waits for the next paint opportunity of h, then waits delay, then
// runs action on the host goroutine. Negative delays are treated as zero.
func Schedule(h Host, delay time.Duration, action func()) *Handle {
	if delay < 0 {
		delay = 0
	}
	hd := &Handle{}
	cancel := h.NextFrame(func() {
		hd.mu.Lock()
		defer hd.mu.Unlock()
		if hd.phase != phaseFrame {
			return
		}
		hd.phase = phaseDelay
		hd.cancelDelay = h.After(delay, func() {
			hd.mu.Lock()
			if hd.phase != phaseDelay {
				hd.mu.Unlock()
				return
			}
			hd.phase = phaseFired
			hd.cancelFrame, hd.cancelDelay = nil, nil
			hd.mu.Unlock()
			action()
		})
	})
	hd.mu.Lock()
	if hd.phase == phaseFrame {
		hd.cancelFrame = cancel
	}
	hd.mu.Unlock()
	return hd
}

// Cancel prevents the action from running if it has not run yet.
func (hd *Handle) Cancel() {
	if hd == nil {
		return
	}
	hd.mu.Lock()
	if hd.phase == phaseFired || hd.phase == phaseCancelled {
		hd.mu.Unlock()
		return
	}
	hd.phase = phaseCancelled
	frame, delay := hd.cancelFrame, hd.cancelDelay
	hd.cancelFrame, hd.cancelDelay = nil, nil
	hd.mu.Unlock()

	if frame != nil {
		frame()
	}
	if delay != nil {
		delay()
	}
}

// Fired reports whether the action has run.
func (hd *Handle) Fired() bool {
	if hd == nil {
		return false
	}
	hd.mu.Lock()
	defer hd.mu.Unlock()
	return hd.phase == phaseFired
}

// Cancelled reports whether Cancel stopped the action.
func (hd *Handle) Cancelled() bool {
	if hd == nil {
		return false
	}
	hd.mu.Lock()
	defer hd.mu.Unlock()
	return hd.phase == phaseCancelled
}
