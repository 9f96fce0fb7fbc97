package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrNilFactory reports an async write without a factory.
	ErrNilFactory = errors.New("nil factory")
	// ErrFactoryPanic reports a factory that panicked.
	ErrFactoryPanic = errors.New("factory panicked")
)

// Factory produces the value for an asynchronous write.
type Factory func(ctx context.Context) (any, error)

type guard struct {
	generation uint64
	inFlight   bool
}

// Setter writes into a store synchronously or asynchronously.
//
// Asynchronous writes for the same key follow last-started-wins: each
// SetAsync takes a new generation for its key, and a result is applied only
// if no newer SetAsync for that key has started. Superseded factories keep
// running; their results are dropped.
type Setter[K comparable] struct {
	store     *Store[K]
	scheduler Scheduler
	logger    *slog.Logger
	onError   func(key K, err error)

	mu     sync.Mutex
	guards map[K]*guard
	wg     sync.WaitGroup
}

// SetterOption configures a Setter.
type SetterOption[K comparable] func(*Setter[K])

// WithScheduler delivers async results through scheduler instead of the
// factory goroutine. A Queue flushed by the owner keeps every write on the
// owner's goroutine.
func WithScheduler[K comparable](scheduler Scheduler) SetterOption[K] {
	return func(s *Setter[K]) {
		s.scheduler = scheduler
	}
}

// WithLogger sets the logger that receives async failures.
func WithLogger[K comparable](logger *slog.Logger) SetterOption[K] {
	return func(s *Setter[K]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithErrorHandler registers fn to observe async failures.
func WithErrorHandler[K comparable](fn func(key K, err error)) SetterOption[K] {
	return func(s *Setter[K]) {
		s.onError = fn
	}
}

// NewSetter creates a setter bound to store.
func NewSetter[K comparable](store *Store[K], opts ...SetterOption[K]) *Setter[K] {
	s := &Setter[K]{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		guards: make(map[K]*guard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Store returns the store the setter writes to.
func (s *Setter[K]) Store() *Store[K] {
	return s.store
}

// Set writes value synchronously.
func (s *Setter[K]) Set(key K, value any) {
	s.store.Set(key, value)
}

type asyncConfig struct {
	placeholder    any
	hasPlaceholder bool
}

// AsyncOption configures one SetAsync call.
type AsyncOption func(*asyncConfig)

// WithPlaceholder writes value immediately while the factory runs.
func WithPlaceholder(value any) AsyncOption {
	return func(cfg *asyncConfig) {
		cfg.placeholder = value
		cfg.hasPlaceholder = true
	}
}

// SetAsync starts factory on its own goroutine and returns immediately.
// Failures are logged and reported to the error handler; they never touch
// the store and are never returned to the caller. ctx is handed to factory,
// which decides how to react to cancellation: a value returned without error
// is applied even when ctx is already done.
func (s *Setter[K]) SetAsync(ctx context.Context, key K, factory Factory, opts ...AsyncOption) {
	var cfg asyncConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.hasPlaceholder {
		s.store.Set(key, cfg.placeholder)
	}

	gen := s.begin(key)
	op := ulid.Make().String()
	s.logger.Debug("async set started", "key", key, "op", op, "generation", gen)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		value, err := s.run(ctx, key, op, factory)
		s.deliver(func() {
			s.finish(key, gen, op, value, err)
		})
	}()
}

// InFlight reports whether the latest async write for key is unresolved.
func (s *Setter[K]) InFlight(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guards[key]
	return ok && g.inFlight
}

// Generation returns the number of async writes started for key.
func (s *Setter[K]) Generation(key K) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.guards[key]; ok {
		return g.generation
	}
	return 0
}

// Wait blocks until every started factory has returned.
// Results delivered through a scheduler may still be pending.
func (s *Setter[K]) Wait() {
	s.wg.Wait()
}

func (s *Setter[K]) begin(key K) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guards[key]
	if !ok {
		g = &guard{}
		s.guards[key] = g
	}
	g.generation++
	g.inFlight = true
	return g.generation
}

// resolve marks gen finished and reports whether it is still the latest.
func (s *Setter[K]) resolve(key K, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guards[key]
	if !ok || g.generation != gen {
		return false
	}
	g.inFlight = false
	return true
}

func (s *Setter[K]) run(ctx context.Context, key K, op string, factory Factory) (value any, err error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("async factory panic",
				"key", key,
				"op", op,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			value = nil
			err = fmt.Errorf("%w (correlation_id: %s)", ErrFactoryPanic, correlationID)
		}
	}()
	return factory(ctx)
}

func (s *Setter[K]) deliver(fn func()) {
	if s.scheduler == nil {
		fn()
		return
	}
	s.scheduler.Schedule(fn)
}

func (s *Setter[K]) finish(key K, gen uint64, op string, value any, err error) {
	if err != nil {
		// The counter keeps its value, so resolving a failed generation
		// cannot let an older result through.
		s.resolve(key, gen)
		s.logger.Warn("async set failed", "key", key, "op", op, "generation", gen, "error", err)
		if s.onError != nil {
			s.onError(key, err)
		}
		return
	}
	applied := s.store.set(key, value, func() bool {
		return s.resolve(key, gen)
	})
	if !applied {
		s.logger.Debug("async set superseded", "key", key, "op", op, "generation", gen)
	}
}
