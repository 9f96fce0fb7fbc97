// Package view draws live reader values on a terminal screen.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-keys/bind"
	"github.com/odvcencio/furry-keys/render"
	"github.com/odvcencio/furry-keys/state"
)

// Watch names one binding shown by the view.
type Watch struct {
	Label   string
	Options bind.Options[string]
}

// Option configures a View.
type Option func(*View)

// WithTitle sets the header line.
func WithTitle(title string) Option {
	return func(v *View) {
		v.title = title
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

type row struct {
	label   string
	binding *bind.Binding[string]
}

// View renders one line per watch and redraws when any of them changes.
// Changes from other goroutines coalesce into a single redraw.
type View struct {
	screen      tcell.Screen
	title       string
	logger      *slog.Logger
	rows        []row
	wake        chan struct{}
	invalidator *bind.Invalidator
}

// New creates a view over store. The screen is initialised by Run.
func New(screen tcell.Screen, store *state.Store[string], watches []Watch, opts ...Option) (*View, error) {
	if screen == nil {
		return nil, errors.New("screen is required")
	}
	v := &View{
		screen: screen,
		title:  "furrykeys",
		logger: slog.New(slog.DiscardHandler),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.invalidator = bind.NewInvalidator(func() bool {
		select {
		case v.wake <- struct{}{}:
			return true
		default:
			return false
		}
	})

	for _, w := range watches {
		o := w.Options
		o.Invalidator = v.invalidator
		b, err := bind.New(store, o)
		if err != nil {
			return nil, fmt.Errorf("watch %q: %w", w.Label, err)
		}
		v.rows = append(v.rows, row{label: w.Label, binding: b})
	}
	return v, nil
}

// Run draws until Esc, Ctrl-C or q is pressed, or ctx is done.
// It returns nil on a key exit and ctx.Err() on cancellation.
func (v *View) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := v.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer v.screen.Fini()
	v.screen.HideCursor()

	for _, r := range v.rows {
		if err := r.binding.Mount(); err != nil {
			return fmt.Errorf("mount %q: %w", r.label, err)
		}
		defer r.binding.Unmount()
	}
	v.logger.Debug("view started", "rows", len(v.rows))

	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event)
	go v.pollEvents(events, done)

	v.Draw()
	for {
		dirty := false
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if quitKey(ev) {
					v.logger.Debug("view closed")
					return nil
				}
			case *tcell.EventResize:
				v.screen.Sync()
				dirty = true
			}
		case <-v.wake:
			v.invalidator.Reset()
			dirty = true
		}
		if dirty {
			v.Draw()
		}
	}
}

func (v *View) pollEvents(events chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

func quitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}

// Draw paints the current values and shows the screen.
func (v *View) Draw() {
	v.screen.Clear()
	width, height := v.screen.Size()
	base := tcell.StyleDefault

	v.put(0, 0, width, v.title, base.Bold(true))

	labelWidth := 0
	for _, r := range v.rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(r.label))
	}
	for i, r := range v.rows {
		y := i + 2
		if y >= height-1 {
			break
		}
		v.put(0, y, labelWidth, r.label, base.Foreground(tcell.ColorTeal))
		v.put(labelWidth+2, y, width-labelWidth-2, render.FormatValue(r.binding.Value()), base)
	}
	if height > 2 {
		v.put(0, height-1, width, "esc to quit", base.Dim(true))
	}
	v.screen.Show()
}

// put writes text at (x, y), clipped to width cells.
func (v *View) put(x, y, width int, text string, style tcell.Style) {
	if width <= 0 {
		return
	}
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "...")
	}
	for _, r := range text {
		v.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}
