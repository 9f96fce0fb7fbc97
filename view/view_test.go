package view

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/furry-keys/bind"
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

func line(screen tcell.Screen, y int) string {
	width, _ := screen.Size()
	var b strings.Builder
	for x := 0; x < width; x++ {
		r, _, _, _ := screen.GetContent(x, y)
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func newView(t *testing.T, store *state.Store[string]) (*View, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	v, err := New(screen, store, []Watch{
		{Label: "name", Options: bind.Options[string]{Keys: []string{"name"}}},
		{Label: "total", Options: bind.Options[string]{Keys: []string{"a", "b"}, Derive: sum}},
	}, WithTitle("demo"))
	require.NoError(t, err)
	return v, screen
}

func TestView_Draw(t *testing.T) {
	store := state.NewStore(map[string]any{"name": "ada", "a": 1, "b": 2})
	v, screen := newView(t, store)
	require.NoError(t, screen.Init())
	defer screen.Fini()
	screen.SetSize(30, 6)

	v.Draw()
	assert.Equal(t, "demo", line(screen, 0))
	assert.Equal(t, "name   ada", line(screen, 2))
	assert.Equal(t, "total  3", line(screen, 3))
	assert.Equal(t, "esc to quit", line(screen, 5))
}

func TestView_RunRedrawsAndQuits(t *testing.T) {
	store := state.NewStore(map[string]any{"name": "ada", "a": 1, "b": 2})
	v, screen := newView(t, store)

	errs := make(chan error, 1)
	go func() { errs <- v.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return line(screen, 3) == "total  3"
	}, 2*time.Second, 10*time.Millisecond)

	store.Set("a", 40)
	require.Eventually(t, func() bool {
		return line(screen, 3) == "total  42"
	}, 2*time.Second, 10*time.Millisecond)

	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("view did not exit on escape")
	}
	assert.Equal(t, 0, store.Subscribers("a"), "bindings are unmounted on exit")
}

func TestView_RunStopsOnCancel(t *testing.T) {
	store := state.NewStore[string](nil)
	v, _ := newView(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- v.Run(ctx) }()
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("view did not exit on cancel")
	}
}

func TestNew_InvalidWatch(t *testing.T) {
	store := state.NewStore[string](nil)
	_, err := New(tcell.NewSimulationScreen("UTF-8"), store, []Watch{
		{Label: "bad", Options: bind.Options[string]{Keys: []string{"a", "b"}}},
	})
	assert.ErrorIs(t, err, state.ErrReaderKeys)

	_, err = New(nil, store, nil)
	assert.Error(t, err)
}
