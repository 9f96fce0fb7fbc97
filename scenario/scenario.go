package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted run against a fresh store.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Seed is the initial store state.
	Seed map[string]any `yaml:"seed,omitempty"`

	// Readers are mounted before the first step.
	Readers []ReaderSpec `yaml:"readers,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// ReaderSpec declares a named reader.
type ReaderSpec struct {
	Name   string   `yaml:"name"`
	Keys   []string `yaml:"keys"`
	Derive string   `yaml:"derive,omitempty"`
	Equal  string   `yaml:"equal,omitempty"`
}

// Step holds exactly one action.
type Step struct {
	Set      *SetStep    `yaml:"set,omitempty"`
	SetAsync *AsyncStep  `yaml:"set_async,omitempty"`
	Wait     bool        `yaml:"wait,omitempty"`
	Mount    string      `yaml:"mount,omitempty"`
	Unmount  string      `yaml:"unmount,omitempty"`
	Expect   *ExpectStep `yaml:"expect,omitempty"`
}

// SetStep writes a value synchronously.
type SetStep struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// AsyncStep starts an asynchronous write.
type AsyncStep struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value,omitempty"`
	// Delay orders completion among pending writes; lower finishes first.
	Delay int `yaml:"delay,omitempty"`
	// Error makes the factory fail with this message.
	Error string `yaml:"error,omitempty"`
	// Placeholder is written immediately when set.
	Placeholder any `yaml:"placeholder,omitempty"`
}

// ExpectStep checks a key or a reader.
type ExpectStep struct {
	Key           string `yaml:"key,omitempty"`
	Reader        string `yaml:"reader,omitempty"`
	Value         any    `yaml:"value,omitempty"`
	Notifications *int   `yaml:"notifications,omitempty"`
	InFlight      *bool  `yaml:"in_flight,omitempty"`
}

// Kind names the action a step holds.
func (s Step) Kind() string {
	switch {
	case s.Set != nil:
		return "set"
	case s.SetAsync != nil:
		return "set_async"
	case s.Wait:
		return "wait"
	case s.Mount != "":
		return "mount"
	case s.Unmount != "":
		return "unmount"
	case s.Expect != nil:
		return "expect"
	default:
		return ""
	}
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Set != nil, s.SetAsync != nil, s.Wait, s.Mount != "", s.Unmount != "", s.Expect != nil} {
		if set {
			n++
		}
	}
	return n
}

// ErrInvalid reports a scenario that cannot run.
var ErrInvalid = errors.New("invalid scenario")

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks names, strategies and step shapes.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: steps must be non-empty", ErrInvalid)
	}

	readers := make(map[string]bool, len(sc.Readers))
	for i, r := range sc.Readers {
		if r.Name == "" {
			return fmt.Errorf("%w: reader %d has no name", ErrInvalid, i)
		}
		if readers[r.Name] {
			return fmt.Errorf("%w: duplicate reader %q", ErrInvalid, r.Name)
		}
		readers[r.Name] = true
		if len(r.Keys) == 0 {
			return fmt.Errorf("%w: reader %q has no keys", ErrInvalid, r.Name)
		}
		if len(r.Keys) > 1 && r.Derive == "" {
			return fmt.Errorf("%w: reader %q has %d keys and no derive", ErrInvalid, r.Name, len(r.Keys))
		}
		if _, err := deriveByName(r.Derive); err != nil {
			return fmt.Errorf("%w: reader %q: %v", ErrInvalid, r.Name, err)
		}
		if _, err := equalByName(r.Equal); err != nil {
			return fmt.Errorf("%w: reader %q: %v", ErrInvalid, r.Name, err)
		}
	}

	for i, step := range sc.Steps {
		if n := step.actions(); n != 1 {
			return fmt.Errorf("%w: step %d has %d actions, want 1", ErrInvalid, i+1, n)
		}
		switch {
		case step.Set != nil && step.Set.Key == "":
			return fmt.Errorf("%w: step %d: set needs a key", ErrInvalid, i+1)
		case step.SetAsync != nil && step.SetAsync.Key == "":
			return fmt.Errorf("%w: step %d: set_async needs a key", ErrInvalid, i+1)
		case step.Mount != "" && !readers[step.Mount]:
			return fmt.Errorf("%w: step %d: unknown reader %q", ErrInvalid, i+1, step.Mount)
		case step.Unmount != "" && !readers[step.Unmount]:
			return fmt.Errorf("%w: step %d: unknown reader %q", ErrInvalid, i+1, step.Unmount)
		case step.Expect != nil:
			e := step.Expect
			if (e.Key == "") == (e.Reader == "") {
				return fmt.Errorf("%w: step %d: expect needs exactly one of key or reader", ErrInvalid, i+1)
			}
			if e.Reader != "" && !readers[e.Reader] {
				return fmt.Errorf("%w: step %d: unknown reader %q", ErrInvalid, i+1, e.Reader)
			}
			if e.InFlight != nil && e.Key == "" {
				return fmt.Errorf("%w: step %d: in_flight applies to keys", ErrInvalid, i+1)
			}
		}
	}
	return nil
}
