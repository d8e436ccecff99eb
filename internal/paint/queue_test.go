package paint

import (
	"testing"
	"time"
)

func TestQueueRunTasksSnapshot(t *testing.T) {
	q := NewQueue()
	var order []string
	q.Post(func() {
		order = append(order, "a")
		q.Post(func() { order = append(order, "c") })
	})
	q.Post(func() { order = append(order, "b") })

	<-q.Wake()
	if ran := q.RunTasks(); ran != 2 {
		t.Fatalf("ran = %d, want 2", ran)
	}
	if len(order) != 2 {
		t.Fatalf("task posted during the drain ran early: %v", order)
	}
	select {
	case <-q.Wake():
	default:
		t.Fatalf("expected a wake-up for the leftover task")
	}
	q.RunTasks()
	if got := order; len(got) != 3 || got[2] != "c" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestQueueFrameCancel(t *testing.T) {
	q := NewQueue()
	ran := 0
	cancel := q.NextFrame(func() { ran++ })
	q.NextFrame(func() { ran++ })
	if !q.FramePending() {
		t.Fatalf("expected pending frame")
	}
	cancel()
	if _, frames := q.Pending(); frames != 1 {
		t.Fatalf("frames = %d, want 1", frames)
	}
	if got := q.RunFrame(); got != 1 || ran != 1 {
		t.Fatalf("RunFrame = %d ran = %d, want 1/1", got, ran)
	}
	if q.FramePending() {
		t.Fatalf("frame requests should be consumed")
	}
}

func TestQueueFrameRequestedDuringFrameWaits(t *testing.T) {
	q := NewQueue()
	ran := 0
	q.NextFrame(func() {
		ran++
		q.NextFrame(func() { ran++ })
	})
	q.RunFrame()
	if ran != 1 {
		t.Fatalf("nested request ran in the same frame")
	}
	q.RunFrame()
	if ran != 2 {
		t.Fatalf("nested request never ran")
	}
}

func TestQueueAfterPostsBack(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})
	q.After(5*time.Millisecond, func() { close(done) })
	select {
	case <-q.Wake():
	case <-time.After(time.Second):
		t.Fatalf("timer never posted")
	}
	q.RunTasks()
	select {
	case <-done:
	default:
		t.Fatalf("timer callback did not run on RunTasks")
	}
}

func TestQueueAfterCancelled(t *testing.T) {
	q := NewQueue()
	fired := false
	cancel := q.After(time.Millisecond, func() { fired = true })
	cancel()
	time.Sleep(10 * time.Millisecond)
	q.RunTasks()
	if fired {
		t.Fatalf("cancelled timer ran")
	}
}
