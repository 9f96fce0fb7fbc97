package scenario

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/odvcencio/furry-keys/bind"
	"github.com/odvcencio/furry-keys/state"
)

// Trace event types.
const (
	EventSet         = "set"
	EventNotify      = "notify"
	EventAsyncStart  = "async_start"
	EventAsyncResult = "async_result"
	EventMount       = "mount"
	EventUnmount     = "unmount"
)

// Async outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

// deliveryTimeout bounds how long the runner waits for a released factory.
const deliveryTimeout = 5 * time.Second

// TraceEvent records one observable step of a run.
type TraceEvent struct {
	Seq        int    `json:"seq"`
	Type       string `json:"type"`
	Key        string `json:"key,omitempty"`
	Reader     string `json:"reader,omitempty"`
	Value      any    `json:"value,omitempty"`
	Generation uint64 `json:"generation,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	Name   string       `json:"name"`
	Pass   bool         `json:"pass"`
	Errors []string     `json:"errors,omitempty"`
	Trace  []TraceEvent `json:"trace"`
	// Final holds the committed value of every key after the run.
	Final map[string]any `json:"final"`
}

// Option configures Run.
type Option func(*runner)

// WithLogger sets the logger handed to the store setter.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type pendingOp struct {
	step       *AsyncStep
	seq        int
	generation uint64
	release    chan struct{}
}

type runner struct {
	sc       *Scenario
	logger   *slog.Logger
	store    *state.Store[string]
	setter   *state.Setter[string]
	queue    *state.Queue
	bindings map[string]*bind.Binding[string]
	specs    map[string]ReaderSpec
	counts   map[string]int
	pending  []*pendingOp
	result   *Result
}

// Run executes sc against a fresh store.
// Failed expectations are reported in Result; an error means the run itself broke.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: nil scenario", ErrInvalid)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r := &runner{
		sc:       sc,
		logger:   slog.New(slog.DiscardHandler),
		queue:    state.NewQueue(),
		bindings: make(map[string]*bind.Binding[string]),
		specs:    make(map[string]ReaderSpec),
		counts:   make(map[string]int),
		result:   &Result{Name: sc.Name, Trace: []TraceEvent{}},
	}
	for _, opt := range opts {
		opt(r)
	}

	store, err := state.NewStoreFromAny[string](sc.Seed)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	r.store = store
	r.setter = state.NewSetter(store,
		state.WithLogger[string](r.logger),
		state.WithScheduler[string](r.queue),
	)
	defer r.unmountAll()

	for _, spec := range sc.Readers {
		r.specs[spec.Name] = spec
		if err := r.mount(spec.Name); err != nil {
			return nil, err
		}
	}

	for i, step := range sc.Steps {
		if err := r.step(ctx, i+1, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
	}
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	r.result.Final = store.Snapshot()
	r.result.Pass = len(r.result.Errors) == 0
	return r.result, nil
}

func (r *runner) record(ev TraceEvent) {
	ev.Seq = len(r.result.Trace) + 1
	r.result.Trace = append(r.result.Trace, ev)
}

func (r *runner) fail(n int, format string, args ...any) {
	r.result.Errors = append(r.result.Errors, fmt.Sprintf("step %d: ", n)+fmt.Sprintf(format, args...))
}

func (r *runner) step(ctx context.Context, n int, step Step) error {
	switch {
	case step.Set != nil:
		r.record(TraceEvent{Type: EventSet, Key: step.Set.Key, Value: step.Set.Value})
		r.setter.Set(step.Set.Key, step.Set.Value)
	case step.SetAsync != nil:
		r.startAsync(ctx, step.SetAsync)
	case step.Wait:
		return r.wait(ctx)
	case step.Mount != "":
		return r.mount(step.Mount)
	case step.Unmount != "":
		r.unmount(step.Unmount)
	case step.Expect != nil:
		r.expect(n, step.Expect)
	}
	return nil
}

func (r *runner) mount(name string) error {
	if b, ok := r.bindings[name]; ok && b.Mounted() {
		return nil
	}
	spec := r.specs[name]
	derive, err := deriveByName(spec.Derive)
	if err != nil {
		return err
	}
	equal, err := equalByName(spec.Equal)
	if err != nil {
		return err
	}

	var b *bind.Binding[string]
	b, err = bind.New(r.store, bind.Options[string]{
		Keys:   spec.Keys,
		Derive: derive,
		Equal:  equal,
		Scheduler: state.SchedulerFunc(func(fn func()) {
			fn()
			r.counts[name]++
			r.record(TraceEvent{Type: EventNotify, Reader: name, Value: b.Value()})
		}),
	})
	if err != nil {
		return fmt.Errorf("reader %q: %w", name, err)
	}
	if err := b.Mount(); err != nil {
		return fmt.Errorf("reader %q: %w", name, err)
	}
	r.bindings[name] = b
	r.record(TraceEvent{Type: EventMount, Reader: name, Value: b.Value()})
	return nil
}

func (r *runner) unmount(name string) {
	b, ok := r.bindings[name]
	if !ok || !b.Mounted() {
		return
	}
	b.Unmount()
	r.record(TraceEvent{Type: EventUnmount, Reader: name})
}

func (r *runner) unmountAll() {
	for _, b := range r.bindings {
		b.Unmount()
	}
}

func (r *runner) startAsync(ctx context.Context, step *AsyncStep) {
	op := &pendingOp{
		step:       step,
		seq:        len(r.pending),
		generation: r.setter.Generation(step.Key) + 1,
		release:    make(chan struct{}),
	}
	r.pending = append(r.pending, op)
	r.record(TraceEvent{Type: EventAsyncStart, Key: step.Key, Value: step.Placeholder, Generation: op.generation})

	var opts []state.AsyncOption
	if step.Placeholder != nil {
		opts = append(opts, state.WithPlaceholder(step.Placeholder))
	}
	r.setter.SetAsync(ctx, step.Key, func(ctx context.Context) (any, error) {
		select {
		case <-op.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if step.Error != "" {
			return nil, errors.New(step.Error)
		}
		return step.Value, nil
	}, opts...)
}

// wait releases pending factories by virtual delay and applies each result
// before releasing the next.
func (r *runner) wait(ctx context.Context) error {
	pending := r.pending
	r.pending = nil
	slices.SortStableFunc(pending, func(a, b *pendingOp) int {
		return cmp.Or(cmp.Compare(a.step.Delay, b.step.Delay), cmp.Compare(a.seq, b.seq))
	})

	for _, op := range pending {
		close(op.release)
		select {
		case <-r.queue.Ready():
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(deliveryTimeout):
			return fmt.Errorf("async write to %q was not delivered", op.step.Key)
		}

		ev := TraceEvent{Type: EventAsyncResult, Key: op.step.Key, Generation: op.generation}
		switch {
		case op.step.Error != "":
			ev.Outcome = OutcomeFailed
		case op.generation == r.setter.Generation(op.step.Key):
			ev.Outcome = OutcomeApplied
			ev.Value = op.step.Value
		default:
			ev.Outcome = OutcomeStale
			ev.Value = op.step.Value
		}
		r.record(ev)
		r.queue.Flush()
	}
	r.setter.Wait()
	return nil
}

func (r *runner) expect(n int, e *ExpectStep) {
	if e.Key != "" {
		got, ok := r.store.Get(e.Key)
		if e.Value != nil {
			if !ok {
				r.fail(n, "key %q is unset, want %v", e.Key, e.Value)
			} else if !valuesEqual(got, e.Value) {
				r.fail(n, "key %q = %v, want %v", e.Key, got, e.Value)
			}
		}
		if e.InFlight != nil {
			if got := r.setter.InFlight(e.Key); got != *e.InFlight {
				r.fail(n, "key %q in flight = %v, want %v", e.Key, got, *e.InFlight)
			}
		}
		return
	}

	b := r.bindings[e.Reader]
	if e.Value != nil {
		var got any
		if b != nil {
			got = b.Value()
		}
		if !valuesEqual(got, e.Value) {
			r.fail(n, "reader %q = %v, want %v", e.Reader, got, e.Value)
		}
	}
	if e.Notifications != nil {
		if got := r.counts[e.Reader]; got != *e.Notifications {
			r.fail(n, "reader %q notified %d times, want %d", e.Reader, got, *e.Notifications)
		}
	}
}
