package paint

import "time"

// CancelFunc stops a pending frame request or timer. Calling it after the
// callback ran, or more than once, does nothing.
type CancelFunc func()

// Host is the environment that owns the UI goroutine. Every callback handed to
// a Host runs on that goroutine and never synchronously inside the call that
// registered it.
type Host interface {
	// Post runs fn after the current task returns.
	Post(fn func())
	// NextFrame runs fn at the next paint opportunity. Requests made while a
	// frame is being processed wait for the following frame.
	NextFrame(fn func()) CancelFunc
	// After runs fn once d has elapsed.
	After(d time.Duration, fn func()) CancelFunc
}

func noopCancel() {}
