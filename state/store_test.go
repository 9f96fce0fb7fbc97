package state

import (
	"errors"
	"testing"
)

type attrs map[string]any

type namedState map[string]any

func (attrs) Describe() string { return "attrs" }

func TestStore_SetThenGet(t *testing.T) {
	store := NewStore[string](nil)

	if _, ok := store.Get("missing"); ok {
		t.Fatalf("expected missing key to be absent")
	}

	store.Set("k", 42)
	got, ok := store.Get("k")
	if !ok || got != 42 {
		t.Fatalf("expected 42, got %v (ok=%v)", got, ok)
	}
	possible, _ := store.Possible("k")
	if possible != 42 {
		t.Fatalf("expected possible 42 after first write, got %v", possible)
	}
}

func TestStore_SeedsInitialValues(t *testing.T) {
	store := NewStore(map[string]any{"b": 2, "a": 1})

	if store.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", store.Len())
	}
	keys := store.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected seeded keys in sorted order, got %v", keys)
	}
	if got, _ := store.Get("a"); got != 1 {
		t.Fatalf("expected a=1, got %v", got)
	}
}

func TestStore_SetWithoutReadersLeavesCurrent(t *testing.T) {
	store := NewStore(map[string]any{"k": 1})

	store.Set("k", 2)
	if got, _ := store.Get("k"); got != 1 {
		t.Fatalf("expected current to stay 1 without a committing reader, got %v", got)
	}
	if got, _ := store.Possible("k"); got != 2 {
		t.Fatalf("expected possible 2, got %v", got)
	}
}

func TestNewStoreFromAny(t *testing.T) {
	tests := []struct {
		name    string
		initial any
		wantErr bool
	}{
		{name: "nil", initial: nil},
		{name: "plain map", initial: map[string]any{"a": 1}},
		{name: "typed values", initial: map[string]int{"a": 1}},
		{name: "slice", initial: []any{1, 2}, wantErr: true},
		{name: "scalar", initial: 3, wantErr: true},
		{name: "pointer", initial: &map[string]any{}, wantErr: true},
		{name: "struct", initial: struct{ A int }{1}, wantErr: true},
		{name: "wrong key type", initial: map[int]any{1: 1}, wantErr: true},
		{name: "map with methods", initial: attrs{"a": 1}, wantErr: true},
		{name: "named map", initial: namedState{"a": 1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStoreFromAny[string](tt.initial)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got store with %d keys", store.Len())
				}
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("expected ErrConfiguration, got %v", err)
				}
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) || cfgErr.Reason == "" {
					t.Fatalf("expected *ConfigurationError with a reason, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store == nil {
				t.Fatalf("expected store")
			}
		})
	}

	store, err := NewStoreFromAny[string](map[string]int{"a": 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := store.Get("a"); got != 7 {
		t.Fatalf("expected a=7, got %v", got)
	}
}

func TestStore_SubscribeIsASet(t *testing.T) {
	store := NewStore[string](nil)
	reader, err := NewReader(store, ReaderOptions[string]{Keys: []string{"k"}})
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	unsubA := store.Subscribe("k", reader)
	unsubB := store.Subscribe("k", reader)
	if n := store.Subscribers("k"); n != 1 {
		t.Fatalf("expected 1 subscriber after duplicate subscribe, got %d", n)
	}

	unsubA()
	if n := store.Subscribers("k"); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}
	unsubA()
	unsubB()
	if n := store.Subscribers("k"); n != 0 {
		t.Fatalf("expected repeated unsubscribe to be harmless, got %d", n)
	}
}

func TestStore_ReleasesAbandonedSlots(t *testing.T) {
	store := NewStore[string](nil)
	reader, _ := NewReader(store, ReaderOptions[string]{Keys: []string{"ghost"}})

	unsub := store.Subscribe("ghost", reader)
	unsub()
	if len(store.index) != 0 {
		t.Fatalf("expected unwritten key to be released, got %d indexed keys", len(store.index))
	}

	store.Set("real", 1)
	if len(store.slots) != 1 {
		t.Fatalf("expected freed slot to be reused, got %d slots", len(store.slots))
	}
	if keys := store.Keys(); len(keys) != 1 || keys[0] != "real" {
		t.Fatalf("expected only real key, got %v", keys)
	}
}

func TestStore_SetNotifiesEveryWrite(t *testing.T) {
	store := NewStore(map[string]any{"k": 1})
	compares := 0
	reader, _ := NewReader(store, ReaderOptions[string]{
		Keys: []string{"k"},
		Equal: func(a, b any) bool {
			compares++
			return a == b
		},
	})
	if err := reader.SubscribeAll(func() {}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	store.Set("k", 1)
	store.Set("k", 1)
	if compares != 2 {
		t.Fatalf("expected reader to be consulted on every write, got %d", compares)
	}
}

func TestStore_Snapshot(t *testing.T) {
	store := NewStore(map[string]any{"a": 1})
	store.Set("b", 2)

	snap := store.Snapshot()
	if len(snap) != 2 || snap["a"] != 1 || snap["b"] != 2 {
		t.Fatalf("unexpected snapshot: %v", snap)
	}

	var nilStore *Store[string]
	if nilStore.Snapshot() != nil || nilStore.Len() != 0 {
		t.Fatalf("expected nil store to be empty")
	}
}
