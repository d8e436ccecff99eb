package deferral

import (
	"fmt"
	"strings"
)

// Mode selects how queued work is batched and timed.
type Mode string

const (
	// ModeSequential releases one unit at a time in registration order.
	ModeSequential Mode = "sequential"
	// ModeSync releases a batch after one shared delay, all in the same tick.
	ModeSync Mode = "sync"
	// ModeAsyncConcurrent times every unit of a batch independently.
	ModeAsyncConcurrent Mode = "async-concurrent"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{ModeSequential, ModeSync, ModeAsyncConcurrent}

// String returns the configuration spelling of the mode.
func (m Mode) String() string {
	return string(m)
}

// Valid reports whether m names a supported mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSequential, ModeSync, ModeAsyncConcurrent:
		return true
	}
	return false
}

// Batched reports whether the mode honours a batch size.
func (m Mode) Batched() bool {
	return m == ModeSync || m == ModeAsyncConcurrent
}

// Next returns the mode after m in Modes, wrapping around.
func (m Mode) Next() Mode {
	for i, candidate := range Modes {
		if candidate == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeSequential
}

// ParseMode converts a configuration string into a Mode. An empty string
// yields the default sequential mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential", "seq":
		return ModeSequential, nil
	case "sync":
		return ModeSync, nil
	case "async-concurrent", "async", "concurrent":
		return ModeAsyncConcurrent, nil
	}
	return "", fmt.Errorf("deferral: unknown mode %q (want sequential, sync or async-concurrent)", s)
}

// State is the scheduler's lifecycle state.
type State int

const (
	StateIdle    State = iota // nothing in flight, ready to start a batch
	StateWorking              // a batch is being timed
	StatePaused               // no new batch may start
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWorking:
		return "working"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
