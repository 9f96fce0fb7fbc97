// Package bind connects store subscriptions to the lifecycle of their owners.
//
// A store travels in a context.Context (Provide / WithStore); owners look it
// up with StoreFrom, or go through Use and Peek for reactive and one-off reads.
package bind

import (
	"context"
	"errors"

	"github.com/odvcencio/furry-keys/state"
)

// ErrNoProvider reports a lookup on a context that carries no store.
var ErrNoProvider = errors.New("no store provider in context")

type providerKey[K comparable] struct{}

type provider[K comparable] struct {
	store  *state.Store[K]
	setter *state.Setter[K]
}

// Provide builds a store from initial and attaches it to ctx.
// initial must be nil or a plain map; anything else is a *state.ConfigurationError.
func Provide[K comparable](ctx context.Context, initial any, opts ...state.SetterOption[K]) (context.Context, error) {
	store, err := state.NewStoreFromAny[K](initial)
	if err != nil {
		return ctx, err
	}
	return WithStore(ctx, store, opts...), nil
}

// WithStore attaches store, and a setter for it, to ctx.
func WithStore[K comparable](ctx context.Context, store *state.Store[K], opts ...state.SetterOption[K]) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, providerKey[K]{}, &provider[K]{
		store:  store,
		setter: state.NewSetter(store, opts...),
	})
}

func lookup[K comparable](ctx context.Context) (*provider[K], error) {
	if ctx == nil {
		return nil, ErrNoProvider
	}
	p, ok := ctx.Value(providerKey[K]{}).(*provider[K])
	if !ok || p == nil || p.store == nil {
		return nil, ErrNoProvider
	}
	return p, nil
}

// StoreFrom returns the store attached to ctx.
func StoreFrom[K comparable](ctx context.Context) (*state.Store[K], error) {
	p, err := lookup[K](ctx)
	if err != nil {
		return nil, err
	}
	return p.store, nil
}

// SetterFrom returns the setter attached to ctx.
func SetterFrom[K comparable](ctx context.Context) (*state.Setter[K], error) {
	p, err := lookup[K](ctx)
	if err != nil {
		return nil, err
	}
	return p.setter, nil
}

// Peek reads the committed value of key without subscribing.
func Peek[K comparable](ctx context.Context, key K) (any, bool, error) {
	store, err := StoreFrom[K](ctx)
	if err != nil {
		return nil, false, err
	}
	value, ok := store.Get(key)
	return value, ok, nil
}

// Use creates and mounts a binding on the store attached to ctx.
func Use[K comparable](ctx context.Context, opts Options[K]) (*Binding[K], error) {
	store, err := StoreFrom[K](ctx)
	if err != nil {
		return nil, err
	}
	b, err := New(store, opts)
	if err != nil {
		return nil, err
	}
	if err := b.Mount(); err != nil {
		return nil, err
	}
	return b, nil
}

// Set writes value through the setter attached to ctx.
func Set[K comparable](ctx context.Context, key K, value any) error {
	setter, err := SetterFrom[K](ctx)
	if err != nil {
		return err
	}
	setter.Set(key, value)
	return nil
}

// SetAsync starts an async write through the setter attached to ctx.
// The factory receives ctx.
func SetAsync[K comparable](ctx context.Context, key K, factory state.Factory, opts ...state.AsyncOption) error {
	setter, err := SetterFrom[K](ctx)
	if err != nil {
		return err
	}
	setter.SetAsync(ctx, key, factory, opts...)
	return nil
}
