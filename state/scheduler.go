package state

import "sync"

// Scheduler decides where deferred work runs, such as async results
// re-entering the store or re-render signals reaching their owner.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(func())

// Schedule passes fn to f. Nil work is dropped.
func (f SchedulerFunc) Schedule(fn func()) {
	if f == nil || fn == nil {
		return
	}
	f(fn)
}

// Inline runs work immediately on the calling goroutine.
var Inline Scheduler = SchedulerFunc(func(fn func()) { fn() })

// Queue holds callbacks until the owner flushes them.
// Flushing from one goroutine keeps store writes single-threaded.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	ready   chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Schedule enqueues fn and signals Ready. It never blocks.
func (q *Queue) Schedule(fn func()) {
	if q == nil || fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready receives after work is queued. Signals coalesce, so one receive
// may stand for several callbacks; Flush drains them all.
func (q *Queue) Ready() <-chan struct{} {
	if q == nil {
		return nil
	}
	return q.ready
}

// Len returns the number of queued callbacks.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush runs queued callbacks in order and returns the count.
// Callbacks queued while flushing wait for the next Flush.
func (q *Queue) Flush() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}
