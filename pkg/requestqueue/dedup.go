package requestqueue

import (
	"container/heap"
	"context"
	"fmt"
	"time"
)

// entry is the single live record for one request key
type entry struct {
	id       string
	spec     RequestSpec
	key      string
	priority int
	seq      uint64
	state    State
	waiters  map[uint64]*Waiter
	index    int // position in the pending heap, -1 when not pending

	ctx         context.Context
	submittedAt time.Time
	startedAt   time.Time
}

// The index maps key -> live entry. All helpers below require q.mu.
// An entry is unlinked in the same critical section that makes it terminal,
// so lookup never returns a Completed or Cancelled entry.

func (q *Queue) lookup(key string) (*entry, bool) {
	e, ok := q.index[key]
	if !ok || e.state.Terminal() {
		return nil, false
	}
	return e, true
}

func (q *Queue) admit(ctx context.Context, spec RequestSpec, priority int) *entry {
	q.seq++
	e := &entry{
		id:          q.newEntryID(),
		spec:        spec,
		key:         spec.Key(),
		priority:    priority,
		seq:         q.seq,
		state:       StatePending,
		waiters:     make(map[uint64]*Waiter),
		ctx:         ctx,
		submittedAt: time.Now(),
	}
	q.index[e.key] = e
	heap.Push(&q.pending, e)
	return e
}

// attach adds w to e and promotes a pending entry when w asks for a better priority.
func (q *Queue) attach(e *entry, w *Waiter, priority int) (promoted bool) {
	e.waiters[w.id] = w
	w.entry = e

	if e.state == StatePending && priority < e.priority {
		e.priority = priority
		heap.Fix(&q.pending, e.index)
		return true
	}
	return false
}

func (q *Queue) unlink(e *entry) {
	if cur, ok := q.index[e.key]; ok && cur == e {
		delete(q.index, e.key)
	}
}

// dropPending removes a pending entry and resolves its waiters with err.
// A nil err detaches waiters without resolving them.
func (q *Queue) dropPending(e *entry, err error) int {
	if e.index >= 0 {
		heap.Remove(&q.pending, e.index)
	}
	q.unlink(e)
	e.state = StateCancelled

	n := len(e.waiters)
	for id, w := range e.waiters {
		if err != nil {
			w.resolve(nil, err)
		} else {
			w.entry = nil
		}
		delete(e.waiters, id)
	}
	return n
}

func (q *Queue) newEntryID() string {
	if id, err := q.idGen(); err == nil {
		return id
	}
	return fmt.Sprintf("req-%d", q.seq)
}
