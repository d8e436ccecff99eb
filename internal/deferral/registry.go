package deferral

import (
	"container/list"
	"time"

	"github.com/kingrea/deferview/internal/paint"
)

// ID identifies a registered unit. IDs increase monotonically per scheduler
// and are never reused.
type ID uint64

// workItem is one pending unit.
type workItem struct {
	id       ID
	callback func()
	// ready is set while the item belongs to the current batch and has not
	// been committed.
	ready   bool
	done    bool
	handle  *paint.Handle
	readyAt time.Time
}

// registry keeps work items in registration order with O(1) lookup and
// removal by id.
type registry struct {
	order *list.List
	byID  map[ID]*list.Element
}

func newRegistry() *registry {
	return &registry{
		order: list.New(),
		byID:  make(map[ID]*list.Element),
	}
}

func (r *registry) insert(item *workItem) {
	if _, exists := r.byID[item.id]; exists {
		return
	}
	r.byID[item.id] = r.order.PushBack(item)
}

func (r *registry) find(id ID) *workItem {
	el, ok := r.byID[id]
	if !ok {
		return nil
	}
	return el.Value.(*workItem)
}

// remove drops id and returns the removed item, or nil when id is unknown.
func (r *registry) remove(id ID) *workItem {
	el, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	return r.order.Remove(el).(*workItem)
}

func (r *registry) isEmpty() bool {
	return r.order.Len() == 0
}

func (r *registry) Len() int {
	return r.order.Len()
}

// pending returns up to limit items from the head that are not yet ready.
func (r *registry) pending(limit int) []*workItem {
	if limit <= 0 {
		return nil
	}
	out := make([]*workItem, 0, limit)
	for el := r.order.Front(); el != nil && len(out) < limit; el = el.Next() {
		item := el.Value.(*workItem)
		if item.ready || item.done {
			continue
		}
		out = append(out, item)
	}
	return out
}
