package deferral

import (
	"testing"
	"time"

	"github.com/kingrea/deferview/internal/paint/painttest"
)

func TestStandaloneTimesEachRegistration(t *testing.T) {
	host := painttest.New()
	ctrl := NewStandalone(host, 10*time.Millisecond)
	var fired []string
	ctrl.Register(func() { fired = append(fired, "a") })
	b := ctrl.Register(func() { fired = append(fired, "b") })
	ctrl.Cancel(b)
	ctrl.Pause()
	host.Settle()

	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("fired = %v, want [a]", fired)
	}
	if host.Now() != 10*time.Millisecond {
		t.Fatalf("standalone delay not honoured, now = %s", host.Now())
	}
	if ctrl.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", ctrl.Pending())
	}
	ctrl.Cancel(b)
}
