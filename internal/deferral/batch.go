package deferral

import (
	"time"

	"github.com/kingrea/deferview/internal/paint"
)

// strategy is the contract every mode implements. selectBatch runs with the
// scheduler lock held and must only read the registry; submit starts timing
// for the selected items and must not block.
type strategy interface {
	selectBatch(reg *registry, settings Settings) []*workItem
	submit(s *Scheduler, batch []*workItem, delay time.Duration)
}

func strategyFor(m Mode) (strategy, bool) {
	switch m {
	case ModeSequential:
		return sequential{}, true
	case ModeSync:
		return syncBatch{}, true
	case ModeAsyncConcurrent:
		return concurrentBatch{}, true
	}
	return nil, false
}

// batchLimit clamps the configured batch size to the queue length; sizes
// <= 0 take the whole queue.
func batchLimit(batchSize, queueLen int) int {
	limit := batchSize
	if limit <= 0 || limit > queueLen {
		limit = queueLen
	}
	return limit
}

type sequential struct{}

func (sequential) selectBatch(reg *registry, _ Settings) []*workItem {
	return reg.pending(1)
}

func (sequential) submit(s *Scheduler, batch []*workItem, delay time.Duration) {
	scheduleEach(s, batch, delay)
}

type syncBatch struct{}

func (syncBatch) selectBatch(reg *registry, settings Settings) []*workItem {
	return reg.pending(batchLimit(settings.BatchSize, reg.Len()))
}

// submit shares one handle across the batch so every item commits inside the
// same host callback, in slice order.
func (syncBatch) submit(s *Scheduler, batch []*workItem, delay time.Duration) {
	items := append([]*workItem(nil), batch...)
	handle := paint.Schedule(s.host, delay, func() { s.commit(items) })
	for _, item := range batch {
		item.handle = handle
	}
}

type concurrentBatch struct{}

func (concurrentBatch) selectBatch(reg *registry, settings Settings) []*workItem {
	return reg.pending(batchLimit(settings.BatchSize, reg.Len()))
}

// submit gives every item its own handle; items may commit in any order.
func (concurrentBatch) submit(s *Scheduler, batch []*workItem, delay time.Duration) {
	scheduleEach(s, batch, delay)
}

func scheduleEach(s *Scheduler, batch []*workItem, delay time.Duration) {
	for _, item := range batch {
		item := item
		item.handle = paint.Schedule(s.host, delay, func() { s.commit([]*workItem{item}) })
	}
}
