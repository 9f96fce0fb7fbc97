package bind

import "sync/atomic"

// Invalidator coalesces change signals from many bindings into one
// re-render request until the owner calls Reset.
type Invalidator struct {
	post    func() bool
	pending atomic.Bool
}

// NewInvalidator creates an invalidator wired to a post function.
// post returns false when the request could not be delivered.
func NewInvalidator(post func() bool) *Invalidator {
	return &Invalidator{post: post}
}

// Invalidate requests a re-render.
func (i *Invalidator) Invalidate() {
	if i == nil || i.post == nil {
		return
	}
	if i.pending.CompareAndSwap(false, true) {
		if !i.post() {
			i.pending.Store(false)
		}
	}
}

// Schedule runs fn and requests a re-render. It satisfies state.Scheduler.
func (i *Invalidator) Schedule(fn func()) {
	if fn == nil {
		return
	}
	fn()
	i.Invalidate()
}

// Reset marks the pending request as handled.
func (i *Invalidator) Reset() {
	if i == nil {
		return
	}
	i.pending.Store(false)
}

// Pending reports whether a request is waiting for Reset.
func (i *Invalidator) Pending() bool {
	if i == nil {
		return false
	}
	return i.pending.Load()
}
