package deferral

import (
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/deferview/internal/paint"
)

// Controller is the surface a deferred unit talks to. Scheduler and
// Standalone both implement it.
type Controller interface {
	// Register queues callback and returns the id used to cancel it.
	Register(callback func()) ID
	// Cancel retires id. Unknown or already released ids are ignored.
	Cancel(id ID)
	// Pause stops new batches from starting.
	Pause()
	// Resume lifts a pause and continues with the queue.
	Resume()
	// Advance starts the next batch if the scheduler is idle.
	Advance()
}

// Scheduler is the work-queue state machine behind a provider. All methods
// are safe for concurrent use; callbacks run on the host goroutine without
// the scheduler lock held, so they may call back into the scheduler.
type Scheduler struct {
	id      string
	host    paint.Host
	source  Source
	logger  *slog.Logger
	onPanic func(ID, any)
	metrics *schedulerMetrics

	mu          sync.Mutex
	state       State
	lastID      ID
	reg         *registry
	batch       []*workItem
	kickPending bool
	warnedMode  Mode
}

// Option customizes scheduler construction.
type Option func(*Scheduler)

// WithSettings sets where mode, delay and batch size are read from.
func WithSettings(src Source) Option {
	return func(s *Scheduler) {
		if src != nil {
			s.source = src
		}
	}
}

// WithLogger overrides the default discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPanicHandler is called after a callback panic has been recovered.
func WithPanicHandler(fn func(id ID, recovered any)) Option {
	return func(s *Scheduler) {
		s.onPanic = fn
	}
}

// New creates an idle scheduler running on host.
func New(host paint.Host, opts ...Option) *Scheduler {
	s := &Scheduler{
		id:     uuid.NewString(),
		host:   host,
		source: StaticSettings(DefaultSettings()),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		reg:    newRegistry(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With("component", "deferral", "scheduler", s.id)
	s.metrics = newSchedulerMetrics(s)
	return s
}

// ID returns the instance identifier used in logs and metric labels.
func (s *Scheduler) ID() string {
	return s.id
}

// Register appends callback to the queue. When the queue was empty the first
// scheduling cycle is posted to the host rather than started inline, so a
// burst of registrations lands in one queue before anything is selected.
func (s *Scheduler) Register(callback func()) ID {
	s.mu.Lock()
	s.lastID++
	id := s.lastID
	s.reg.insert(&workItem{id: id, callback: callback})
	kick := s.reg.Len() == 1 && !s.kickPending
	if kick {
		s.kickPending = true
	}
	s.mu.Unlock()

	s.metrics.registered.Inc()
	if kick {
		s.host.Post(s.kick)
	}
	return id
}

func (s *Scheduler) kick() {
	s.mu.Lock()
	s.kickPending = false
	s.mu.Unlock()
	s.Advance()
}

// Advance starts a batch when the scheduler is idle and work is queued.
// Otherwise it does nothing.
func (s *Scheduler) Advance() {
	settings := s.source.Settings()

	s.mu.Lock()
	if s.state != StateIdle || s.reg.isEmpty() || len(s.batch) > 0 {
		s.mu.Unlock()
		return
	}
	strat, ok := strategyFor(settings.Mode)
	if !ok {
		warn := s.warnedMode != settings.Mode
		s.warnedMode = settings.Mode
		s.mu.Unlock()
		if warn {
			s.logger.Warn("unknown mode, nothing scheduled", "mode", string(settings.Mode))
		}
		return
	}
	batch := strat.selectBatch(s.reg, settings)
	if len(batch) == 0 {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	for _, item := range batch {
		item.ready = true
		item.readyAt = now
	}
	s.batch = batch
	s.state = StateWorking
	strat.submit(s, batch, settings.Delay)
	queued := s.reg.Len()
	s.mu.Unlock()

	s.logger.Debug("batch started",
		"mode", settings.Mode,
		"size", len(batch),
		"delay", settings.Delay,
		"queued", queued,
	)
}

// commit releases items in order. Items cancelled or released since the
// batch was selected are skipped, so a callback can never fire twice.
func (s *Scheduler) commit(items []*workItem) {
	for _, item := range items {
		s.mu.Lock()
		if item.done || s.reg.find(item.id) != item {
			s.mu.Unlock()
			continue
		}
		item.done = true
		item.ready = false
		item.handle = nil
		s.reg.remove(item.id)
		s.dropFromBatch(item)
		readyAt := item.readyAt
		s.mu.Unlock()

		s.metrics.committed.Inc()
		s.metrics.latency.UpdateDuration(readyAt)
		s.invoke(item)
	}
	s.settle()
}

// invoke runs the callback, isolating panics so one failing unit does not
// stop the rest of its batch.
func (s *Scheduler) invoke(item *workItem) {
	if item.callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.metrics.panics.Inc()
			s.logger.Error("deferred callback panicked",
				"id", uint64(item.id),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			if s.onPanic != nil {
				s.onPanic(item.id, r)
			}
		}
	}()
	item.callback()
}

// settle returns a finished batch to idle and starts the next one, unless
// the scheduler is paused.
func (s *Scheduler) settle() {
	s.mu.Lock()
	if len(s.batch) > 0 || s.state != StateWorking {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	s.mu.Unlock()
	s.Advance()
}

// Pause keeps in-flight units timing (they still commit) but prevents any
// new batch from starting until Resume.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	changed := s.state != StatePaused
	s.state = StatePaused
	inFlight := len(s.batch)
	s.mu.Unlock()
	if changed {
		s.logger.Debug("paused", "in_flight", inFlight)
	}
}

// Resume lifts a pause and advances. A batch still in flight keeps the
// scheduler working so two batches never overlap.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	resumed := s.state == StatePaused
	if resumed {
		if len(s.batch) > 0 {
			s.state = StateWorking
		} else {
			s.state = StateIdle
		}
	}
	s.mu.Unlock()
	if resumed {
		s.logger.Debug("resumed")
	}
	s.Advance()
}

// Cancel removes id whatever the scheduler state. A unit that is already
// timing has its handle cancelled first, so its callback never fires.
func (s *Scheduler) Cancel(id ID) {
	s.mu.Lock()
	item := s.reg.remove(id)
	if item == nil {
		s.mu.Unlock()
		return
	}
	var stop *paint.Handle
	inFlight := item.ready && !item.done
	if inFlight {
		s.dropFromBatch(item)
		if !s.batchShares(item.handle) {
			stop = item.handle
		}
	}
	item.ready = false
	item.handle = nil
	settle := inFlight && len(s.batch) == 0 && s.state == StateWorking
	if settle {
		s.state = StateIdle
	}
	s.mu.Unlock()

	stop.Cancel()
	s.metrics.cancelled.Inc()
	if settle {
		s.host.Post(s.Advance)
	}
}

// CancelAll retires every queued unit and returns how many were removed.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	ids := make([]ID, 0, s.reg.Len())
	for el := s.reg.order.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(*workItem).id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Cancel(id)
	}
	return len(ids)
}

// dropFromBatch must be called with s.mu held.
func (s *Scheduler) dropFromBatch(item *workItem) {
	for i, candidate := range s.batch {
		if candidate == item {
			s.batch = append(s.batch[:i], s.batch[i+1:]...)
			return
		}
	}
}

// batchShares must be called with s.mu held.
func (s *Scheduler) batchShares(h *paint.Handle) bool {
	if h == nil {
		return false
	}
	for _, other := range s.batch {
		if other.handle == h {
			return true
		}
	}
	return false
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	State State
	// Queued counts registered units not yet committed, including InFlight.
	Queued     int
	InFlight   int
	Registered uint64
	Committed  uint64
	Cancelled  uint64
	Panicked   uint64
}

// Stats returns a snapshot of queue sizes and lifetime counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	st := Stats{
		State:    s.state,
		Queued:   s.reg.Len(),
		InFlight: len(s.batch),
	}
	s.mu.Unlock()
	if s.metrics != nil {
		st.Registered = s.metrics.registered.Get()
		st.Committed = s.metrics.committed.Get()
		st.Cancelled = s.metrics.cancelled.Get()
		st.Panicked = s.metrics.panics.Get()
	}
	return st
}

var _ Controller = (*Scheduler)(nil)
