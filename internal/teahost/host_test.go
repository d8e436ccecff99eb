package teahost

import (
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/deferview/internal/paint"
)

// program stands in for a tea.Program: the pump sends into msgs and the test
// goroutine plays the role of Update.
type program struct {
	msgs chan tea.Msg
}

func newProgram() *program {
	return &program{msgs: make(chan tea.Msg, 64)}
}

func (p *program) send(msg tea.Msg) {
	p.msgs <- msg
}

// drain feeds every pending message to h until cond holds or timeout.
func (p *program) drain(t *testing.T, h *Host, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case msg := <-p.msgs:
			if !h.Update(msg) {
				t.Fatalf("host rejected its own message %T", msg)
			}
		case <-deadline:
			t.Fatalf("condition not met before timeout")
		}
	}
}

func TestPostedTasksRunInsideUpdate(t *testing.T) {
	h := New(time.Millisecond)
	p := newProgram()
	h.Start(p.send)
	defer h.Stop()

	var ran atomic.Bool
	h.Post(func() { ran.Store(true) })
	time.Sleep(5 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("task ran outside Update")
	}
	p.drain(t, h, ran.Load)
}

func TestScheduleCompletesThroughMessages(t *testing.T) {
	h := New(time.Millisecond)
	p := newProgram()
	h.Start(p.send)
	defer h.Stop()

	var fired atomic.Bool
	paint.Schedule(h, 10*time.Millisecond, func() { fired.Store(true) })
	p.drain(t, h, fired.Load)
}

func TestUpdateIgnoresForeignMessages(t *testing.T) {
	a, b := New(time.Millisecond), New(time.Millisecond)
	if b.Update(wakeMsg{host: a}) {
		t.Fatalf("host handled another host's wake message")
	}
	if b.Update(frameMsg{host: a}) {
		t.Fatalf("host handled another host's frame message")
	}
	if a.Update(tea.KeyMsg{}) {
		t.Fatalf("host handled a key message")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := New(time.Millisecond)
	p := newProgram()
	h.Start(p.send)
	h.Start(p.send)
	h.Stop()
	h.Stop()
	require.NotPanics(t, func() { h.Post(func() {}) })
}
