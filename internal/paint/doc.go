// Package paint defines the host environment a deferred render runs inside
// and the two-phase timer built on top of it. A host offers three things: a
// way to run work on its UI goroutine, a coarse "next paint opportunity"
// signal, and plain delay timers. Schedule composes the last two so content
// that is already visible gets painted before deferred content is revealed.
package paint
