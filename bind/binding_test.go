package bind

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/odvcencio/furry-keys/state"
)

func sum(values []any) any {
	total := 0
	for _, v := range values {
		if n, ok := v.(int); ok {
			total += n
		}
	}
	return total
}

func TestBinding_MountAndChange(t *testing.T) {
	store := state.NewStore(map[string]any{"a": 1, "b": 2})
	b, err := New(store, Options[string]{Keys: []string{"a", "b"}, Derive: sum})
	if err != nil {
		t.Fatalf("new binding: %v", err)
	}
	if b.Value() != 3 {
		t.Fatalf("expected initial value 3, got %v", b.Value())
	}
	if b.Mounted() {
		t.Fatalf("expected binding to start unmounted")
	}

	if err := b.Mount(); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := b.Mount(); err != nil {
		t.Fatalf("second mount: %v", err)
	}
	if store.Subscribers("a") != 1 {
		t.Fatalf("expected a single reader per binding, got %d", store.Subscribers("a"))
	}

	store.Set("a", 10)
	store.Set("b", 20)
	select {
	case <-b.Changes():
	default:
		t.Fatalf("expected a change signal")
	}
	select {
	case <-b.Changes():
		t.Fatalf("expected change signals to coalesce")
	default:
	}
	if b.Value() != 30 {
		t.Fatalf("expected value 30, got %v", b.Value())
	}
}

func TestBinding_UnmountAndRemount(t *testing.T) {
	store := state.NewStore(map[string]any{"k": "a"})
	b, _ := New(store, Options[string]{Keys: []string{"k"}})
	_ = b.Mount()

	b.Unmount()
	b.Unmount()
	if store.Subscribers("k") != 0 {
		t.Fatalf("expected unmount to release the reader")
	}

	store.Set("k", "b")
	if b.Value() != "a" {
		t.Fatalf("expected unmounted binding to keep its value, got %v", b.Value())
	}

	if err := b.Mount(); err != nil {
		t.Fatalf("remount: %v", err)
	}
	// The fresh reader snapshots committed state; "b" was never committed.
	if b.Value() != "a" {
		t.Fatalf("expected remount snapshot a, got %v", b.Value())
	}
	store.Set("k", "c")
	if b.Value() != "c" {
		t.Fatalf("expected c after remount, got %v", b.Value())
	}
}

func TestBinding_ConcurrentMountUnmountLeavesNoReaders(t *testing.T) {
	store := state.NewStore(map[string]any{"a": 1})
	b, err := New(store, Options[string]{Keys: []string{"a"}})
	if err != nil {
		t.Fatalf("new binding: %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 500 {
				_ = b.Mount()
			}
		}()
		go func() {
			defer wg.Done()
			for range 500 {
				b.Unmount()
			}
		}()
	}
	wg.Wait()

	b.Unmount()
	if n := store.Subscribers("a"); n != 0 {
		t.Fatalf("expected no readers after final unmount, got %d", n)
	}
}

func TestBinding_SchedulerAndInvalidator(t *testing.T) {
	store := state.NewStore(map[string]any{"x": 1, "y": 1})
	queue := state.NewQueue()
	posts := 0
	inv := NewInvalidator(func() bool {
		posts++
		return true
	})
	bx, _ := New(store, Options[string]{Keys: []string{"x"}, Scheduler: queue, Invalidator: inv})
	by, _ := New(store, Options[string]{Keys: []string{"y"}, Scheduler: queue, Invalidator: inv})
	_ = bx.Mount()
	_ = by.Mount()

	store.Set("x", 2)
	store.Set("y", 2)
	if bx.Value() != 1 || posts != 0 {
		t.Fatalf("expected changes to wait for the queue")
	}
	if flushed := queue.Flush(); flushed != 2 {
		t.Fatalf("expected 2 queued changes, got %d", flushed)
	}
	if bx.Value() != 2 || by.Value() != 2 {
		t.Fatalf("expected both bindings updated, got %v %v", bx.Value(), by.Value())
	}
	if posts != 1 {
		t.Fatalf("expected one coalesced invalidation, got %d", posts)
	}

	store.Set("x", 3)
	bx.Unmount()
	queue.Flush()
	if bx.Value() != 2 {
		t.Fatalf("expected queued change for unmounted binding to be ignored, got %v", bx.Value())
	}
}

func TestNew_InvalidKeys(t *testing.T) {
	store := state.NewStore[string](nil)
	if _, err := New(store, Options[string]{Keys: []string{"a", "b"}}); !errors.Is(err, state.ErrReaderKeys) {
		t.Fatalf("expected ErrReaderKeys, got %v", err)
	}
}

func TestUse_ReactiveAndPeek(t *testing.T) {
	ctx, err := Provide[string](context.Background(), map[string]any{"k": 1})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}

	b, err := Use(ctx, Options[string]{Keys: []string{"k"}})
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	defer b.Unmount()

	if err := Set(ctx, "k", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	if b.Value() != 2 {
		t.Fatalf("expected reactive value 2, got %v", b.Value())
	}
	value, ok, err := Peek(ctx, "k")
	if err != nil || !ok || value != 2 {
		t.Fatalf("expected peek 2, got %v ok=%v err=%v", value, ok, err)
	}
}

func TestSetAsync_ThroughProvider(t *testing.T) {
	ctx, err := Provide[string](context.Background(), nil)
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
	if err := SetAsync(ctx, "k", func(ctx context.Context) (any, error) {
		return "v", nil
	}); err != nil {
		t.Fatalf("set async: %v", err)
	}
	setter, _ := SetterFrom[string](ctx)
	setter.Wait()
	if value, _, _ := Peek(ctx, "k"); value != "v" {
		t.Fatalf("expected v, got %v", value)
	}
}

func TestProvider_Missing(t *testing.T) {
	ctx := context.Background()
	if _, err := StoreFrom[string](ctx); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if _, err := Use(ctx, Options[string]{Keys: []string{"k"}}); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider from Use, got %v", err)
	}
	if err := Set(ctx, "k", 1); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider from Set, got %v", err)
	}

	// A provider for another key type is not visible.
	intCtx := WithStore(ctx, state.NewStore[int](nil))
	if _, err := StoreFrom[string](intCtx); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected key types to be isolated, got %v", err)
	}
	if _, err := StoreFrom[int](intCtx); err != nil {
		t.Fatalf("expected int store, got %v", err)
	}
}

func TestProvide_RejectsMalformedState(t *testing.T) {
	_, err := Provide[string](context.Background(), []string{"not", "a", "map"})
	if !errors.Is(err, state.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
