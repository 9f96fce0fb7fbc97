// Package state provides a keyed reactive store for terminal UIs.
//
// Every key is backed by a Cell holding two values: Current, the value last
// made visible to a reader, and Possible, the latest write. Set only moves
// Possible and then notifies the readers registered on the key; each Reader
// decides on its own whether the write changes what it observes and, if so,
// commits Possible into Current for all of its keys before signalling its owner.
package state

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Cell is the pair of values backing one key.
type Cell struct {
	Current  any
	Possible any
}

type slot[K comparable] struct {
	key     K
	cell    Cell
	written bool
	readers []*Reader[K]
}

// Store owns keyed cells and the readers subscribed to them.
// Methods are safe for concurrent use; callbacks run outside the store lock.
type Store[K comparable] struct {
	mu    sync.Mutex
	index map[K]int
	slots []slot[K]
	free  []int
}

// NewStore creates a store seeded with initial values.
// Each entry starts with Current and Possible set to the same value.
func NewStore[K comparable](initial map[K]any) *Store[K] {
	s := &Store[K]{index: make(map[K]int, len(initial))}
	keys := make([]K, 0, len(initial))
	for key := range initial {
		keys = append(keys, key)
	}
	sortKeys(keys)
	for _, key := range keys {
		s.seed(key, initial[key])
	}
	return s
}

// NewStoreFromAny creates a store from an untyped initial state.
//
// A nil initial state yields an empty store. Otherwise initial must be a
// plain unnamed map whose key type is assignable to K. Slices, scalars,
// pointers, structs and named map types are rejected with a
// *ConfigurationError.
func NewStoreFromAny[K comparable](initial any) (*Store[K], error) {
	if initial == nil {
		return NewStore[K](nil), nil
	}
	rv := reflect.ValueOf(initial)
	rt := rv.Type()
	if rt.Kind() != reflect.Map {
		return nil, configErrorf("initial state must be a mapping, got %s", rt)
	}
	if rt.Name() != "" {
		return nil, configErrorf("initial state must be a plain mapping, got named type %s", rt)
	}
	keyType := reflect.TypeFor[K]()
	if !rt.Key().AssignableTo(keyType) {
		return nil, configErrorf("initial state keys are %s, want %s", rt.Key(), keyType)
	}
	values := make(map[K]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().Interface().(K)
		values[key] = iter.Value().Interface()
	}
	return NewStore(values), nil
}

// Get returns the committed value for key.
// The second result is false when key has never been written.
func (s *Store[K]) Get(key K) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[key]
	if !ok || !s.slots[i].written {
		return nil, false
	}
	return s.slots[i].cell.Current, true
}

// Possible returns the latest written value for key, which may be ahead of Get.
func (s *Store[K]) Possible(key K) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[key]
	if !ok || !s.slots[i].written {
		return nil, false
	}
	return s.slots[i].cell.Possible, true
}

// Set records value as the possible value of key and notifies every reader
// subscribed to key. The first write to a key also sets its current value.
// Readers are notified synchronously before Set returns.
func (s *Store[K]) Set(key K, value any) {
	s.set(key, value, nil)
}

// set writes value when accept is nil or returns true; accept runs under the
// store lock so the check and the write are atomic.
func (s *Store[K]) set(key K, value any, accept func() bool) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	if accept != nil && !accept() {
		s.mu.Unlock()
		return false
	}
	i := s.slotLocked(key)
	sl := &s.slots[i]
	if sl.written {
		sl.cell.Possible = value
	} else {
		sl.cell = Cell{Current: value, Possible: value}
		sl.written = true
	}
	readers := slices.Clone(sl.readers)
	s.mu.Unlock()

	for _, r := range readers {
		r.notify()
	}
	return true
}

// Subscribe registers reader on key and returns a function that removes it.
// Registering the same reader twice keeps a single entry. The returned
// function is safe to call more than once.
func (s *Store[K]) Subscribe(key K, reader *Reader[K]) func() {
	if s == nil || reader == nil {
		return func() {}
	}
	s.mu.Lock()
	i := s.slotLocked(key)
	if !slices.Contains(s.slots[i].readers, reader) {
		s.slots[i].readers = append(s.slots[i].readers, reader)
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.unsubscribe(key, reader)
		})
	}
}

// Subscribers returns how many readers are registered on key.
func (s *Store[K]) Subscribers(key K) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[key]
	if !ok {
		return 0
	}
	return len(s.slots[i].readers)
}

// Keys returns every written key in slot order.
func (s *Store[K]) Keys() []K {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]K, 0, len(s.slots))
	for _, sl := range s.slots {
		if sl.written {
			keys = append(keys, sl.key)
		}
	}
	return keys
}

// Len returns the number of written keys.
func (s *Store[K]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sl := range s.slots {
		if sl.written {
			n++
		}
	}
	return n
}

// Snapshot copies the committed value of every written key.
func (s *Store[K]) Snapshot() map[K]any {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[K]any, len(s.slots))
	for _, sl := range s.slots {
		if sl.written {
			out[sl.key] = sl.cell.Current
		}
	}
	return out
}

func (s *Store[K]) seed(key K, value any) {
	i := s.slotLocked(key)
	s.slots[i].cell = Cell{Current: value, Possible: value}
	s.slots[i].written = true
}

func (s *Store[K]) slotLocked(key K) int {
	if i, ok := s.index[key]; ok {
		return i
	}
	if s.index == nil {
		s.index = make(map[K]int)
	}
	var i int
	if n := len(s.free); n > 0 {
		i = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[i] = slot[K]{key: key}
	} else {
		i = len(s.slots)
		s.slots = append(s.slots, slot[K]{key: key})
	}
	s.index[key] = i
	return i
}

func (s *Store[K]) unsubscribe(key K, reader *Reader[K]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[key]
	if !ok {
		return
	}
	sl := &s.slots[i]
	sl.readers = slices.DeleteFunc(sl.readers, func(r *Reader[K]) bool {
		return r == reader
	})
	if len(sl.readers) > 0 {
		return
	}
	sl.readers = nil
	if !sl.written {
		// Never written and nobody listening: release the slot.
		delete(s.index, key)
		s.slots[i] = slot[K]{}
		s.free = append(s.free, i)
	}
}

// values reads the current and possible vectors for keys in one pass.
func (s *Store[K]) values(keys []K) (current, possible []any) {
	current = make([]any, len(keys))
	possible = make([]any, len(keys))
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, key := range keys {
		i, ok := s.index[key]
		if !ok || !s.slots[i].written {
			continue
		}
		current[n] = s.slots[i].cell.Current
		possible[n] = s.slots[i].cell.Possible
	}
	return current, possible
}

func (s *Store[K]) currentValues(keys []K) []any {
	current := make([]any, len(keys))
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, key := range keys {
		if i, ok := s.index[key]; ok && s.slots[i].written {
			current[n] = s.slots[i].cell.Current
		}
	}
	return current
}

// commit copies possible into current for every written key in keys.
func (s *Store[K]) commit(keys []K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if i, ok := s.index[key]; ok && s.slots[i].written {
			s.slots[i].cell.Current = s.slots[i].cell.Possible
		}
	}
}

func sortKeys[K comparable](keys []K) {
	slices.SortFunc(keys, func(a, b K) int {
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	})
}
