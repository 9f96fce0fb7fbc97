package bind

import (
	"sync"

	"github.com/odvcencio/furry-keys/state"
)

// Options describes one logical subscription.
type Options[K comparable] struct {
	Keys   []K
	Derive state.DeriveFunc
	Equal  state.EqualFunc
	// Scheduler runs change handling; nil handles changes inline.
	Scheduler state.Scheduler
	// Invalidator, when set, is signalled after every visible change.
	Invalidator *Invalidator
}

// Binding ties a store subscription to an owner's mount lifecycle.
// Each Mount builds a fresh Reader; Unmount releases it.
type Binding[K comparable] struct {
	store   *state.Store[K]
	opts    Options[K]
	changes chan struct{}

	mu     sync.Mutex
	reader *state.Reader[K]
	value  any
}

// New creates an unmounted binding whose value is the current snapshot.
func New[K comparable](store *state.Store[K], opts Options[K]) (*Binding[K], error) {
	reader, err := state.NewReader(store, readerOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Binding[K]{
		store:   store,
		opts:    opts,
		changes: make(chan struct{}, 1),
		value:   reader.Snapshot(),
	}, nil
}

func readerOptions[K comparable](opts Options[K]) state.ReaderOptions[K] {
	return state.ReaderOptions[K]{
		Keys:   opts.Keys,
		Derive: opts.Derive,
		Equal:  opts.Equal,
	}
}

// Keys returns the keys the binding observes.
func (b *Binding[K]) Keys() []K {
	return append([]K(nil), b.opts.Keys...)
}

// Mount subscribes to the binding's keys. Mounting twice is a no-op.
func (b *Binding[K]) Mount() error {
	b.mu.Lock()
	if b.reader != nil {
		b.mu.Unlock()
		return nil
	}
	reader, err := state.NewReader(b.store, readerOptions(b.opts))
	if err != nil {
		b.mu.Unlock()
		return err
	}
	// Subscribe under the lock so a racing Unmount always sees a registered reader.
	defer b.mu.Unlock()
	if err := reader.SubscribeAll(func() { b.changed(reader) }); err != nil {
		return err
	}
	b.reader = reader
	b.value = reader.Snapshot()
	return nil
}

// Unmount releases the subscription. It is safe to call when unmounted.
func (b *Binding[K]) Unmount() {
	b.mu.Lock()
	reader := b.reader
	b.reader = nil
	b.mu.Unlock()
	if reader != nil {
		reader.UnsubscribeAll()
	}
}

// Mounted reports whether the binding holds a live subscription.
func (b *Binding[K]) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reader != nil
}

// Value returns the derived value as of the last visible change.
func (b *Binding[K]) Value() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Changes signals visible changes. Bursts coalesce into one pending signal;
// the signal carries no value, read Value after receiving.
func (b *Binding[K]) Changes() <-chan struct{} {
	return b.changes
}

func (b *Binding[K]) changed(reader *state.Reader[K]) {
	handle := func() {
		b.mu.Lock()
		if b.reader != reader {
			b.mu.Unlock()
			return
		}
		b.value = reader.Snapshot()
		b.mu.Unlock()

		select {
		case b.changes <- struct{}{}:
		default:
		}
		b.opts.Invalidator.Invalidate()
	}
	if b.opts.Scheduler == nil {
		handle()
		return
	}
	b.opts.Scheduler.Schedule(handle)
}
