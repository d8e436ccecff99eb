package deferral

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// schedulerMetrics lives in its own set so several schedulers in one process
// never collide on metric names.
type schedulerMetrics struct {
	set        *metrics.Set
	registered *metrics.Counter
	committed  *metrics.Counter
	cancelled  *metrics.Counter
	panics     *metrics.Counter
	latency    *metrics.Histogram
}

func newSchedulerMetrics(s *Scheduler) *schedulerMetrics {
	set := metrics.NewSet()
	name := func(base string) string {
		return fmt.Sprintf("%s{scheduler=%q}", base, s.id)
	}
	m := &schedulerMetrics{
		set:        set,
		registered: set.NewCounter(name("deferral_registered_total")),
		committed:  set.NewCounter(name("deferral_committed_total")),
		cancelled:  set.NewCounter(name("deferral_cancelled_total")),
		panics:     set.NewCounter(name("deferral_panics_total")),
		latency:    set.NewHistogram(name("deferral_ready_to_commit_seconds")),
	}
	set.NewGauge(name("deferral_queue_length"), func() float64 {
		return float64(s.Stats().Queued)
	})
	set.NewGauge(name("deferral_in_flight"), func() float64 {
		return float64(s.Stats().InFlight)
	})
	return m
}

// Metrics exposes the scheduler's metric set, e.g. for metrics.RegisterSet.
func (s *Scheduler) Metrics() *metrics.Set {
	return s.metrics.set
}

// WriteMetrics writes the scheduler's metrics in Prometheus text format.
func (s *Scheduler) WriteMetrics(w io.Writer) {
	s.metrics.set.WritePrometheus(w)
}
