package state

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNilStore reports a reader built without a store.
var ErrNilStore = errors.New("nil store")

// ReaderOptions configures a Reader.
type ReaderOptions[K comparable] struct {
	// Keys lists the keys the reader depends on, in derivation order.
	Keys []K
	// Derive reduces the key values to one value. Required for more than one key.
	Derive DeriveFunc
	// Equal replaces Identical when deciding whether a write is visible.
	Equal EqualFunc
}

// Reader is a subscription over an ordered list of keys.
//
// A Reader moves from unsubscribed to subscribed through SubscribeAll and
// back through UnsubscribeAll. While subscribed, every write to one of its
// keys re-derives the all-current and all-possible views; when they differ,
// the reader commits every one of its keys and calls onChange.
type Reader[K comparable] struct {
	store  *Store[K]
	keys   []K
	derive DeriveFunc
	equal  EqualFunc

	mu         sync.Mutex
	onChange   func()
	subscribed bool
	subs       Subscriptions
}

// NewReader creates an unsubscribed reader over store.
func NewReader[K comparable](store *Store[K], opts ReaderOptions[K]) (*Reader[K], error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrReaderKeys)
	}
	if len(opts.Keys) > 1 && opts.Derive == nil {
		return nil, fmt.Errorf("%w: %d keys need a derive function", ErrReaderKeys, len(opts.Keys))
	}
	return &Reader[K]{
		store:  store,
		keys:   slices.Clone(opts.Keys),
		derive: opts.Derive,
		equal:  opts.Equal,
	}, nil
}

// Keys returns the reader's keys in order.
func (r *Reader[K]) Keys() []K {
	return slices.Clone(r.keys)
}

// SubscribeAll registers the reader on each of its keys and keeps onChange
// for notifications. It fails if the reader is already subscribed.
func (r *Reader[K]) SubscribeAll(onChange func()) error {
	r.mu.Lock()
	if r.subscribed {
		r.mu.Unlock()
		return ErrAlreadySubscribed
	}
	r.subscribed = true
	r.onChange = onChange
	r.mu.Unlock()

	for _, key := range r.keys {
		r.subs.Add(r.store.Subscribe(key, r))
	}
	return nil
}

// UnsubscribeAll removes the reader from every key and drops onChange.
// It is a no-op when the reader is not subscribed.
func (r *Reader[K]) UnsubscribeAll() {
	r.mu.Lock()
	r.subscribed = false
	r.onChange = nil
	r.mu.Unlock()
	r.subs.Clear()
}

// Subscribed reports whether the reader is registered on its keys.
func (r *Reader[K]) Subscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribed
}

// Snapshot derives the reader's value from the committed values of its keys.
// It never mutates the store and does not require a subscription.
func (r *Reader[K]) Snapshot() any {
	return r.reduce(r.store.currentValues(r.keys))
}

// notify decides whether the latest write is visible to this reader.
func (r *Reader[K]) notify() {
	current, possible := r.store.values(r.keys)
	from, to := r.reduce(current), r.reduce(possible)
	if !r.changed(from, to) {
		return
	}

	r.mu.Lock()
	onChange := r.onChange
	r.mu.Unlock()
	if onChange == nil {
		return
	}

	r.store.commit(r.keys)
	onChange()
}

func (r *Reader[K]) reduce(values []any) any {
	if r.derive != nil {
		return r.derive(values)
	}
	return values[0]
}

func (r *Reader[K]) changed(from, to any) bool {
	if r.equal != nil {
		return !r.equal(from, to)
	}
	return !Identical(from, to)
}
