package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/odvcencio/furry-keys/bind"
	"github.com/odvcencio/furry-keys/seed"
	"github.com/odvcencio/furry-keys/state"
	"github.com/odvcencio/furry-keys/view"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Keys []string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [seed]",
		Short: "Show live values while the seed file changes",
		Long: `Load a seed file, show one line per key in the terminal, and apply
every saved edit of the file to the store. Only changed keys are written,
so lines redraw only when their value changes. Removed keys become null.

Press Esc, Ctrl-C or q to quit.

Example:
  furrykeys watch state.yaml
  furrykeys watch --key user --key theme state.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.Config.Seed
			if len(args) == 1 {
				path = args[0]
			}
			return runWatch(cmd, opts, path)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Keys, "key", "k", nil, "key to show (repeatable, default all seeded keys)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions, path string) error {
	logger := opts.Logger
	store, values, err := openSeed(path)
	if err != nil {
		return err
	}
	setter := state.NewSetter(store, state.WithLogger[string](logger))

	keys := opts.Keys
	if len(keys) == 0 {
		keys = store.Keys()
	}
	watches := make([]view.Watch, 0, len(keys))
	for _, key := range keys {
		watches = append(watches, view.Watch{
			Label:   key,
			Options: bind.Options[string]{Keys: []string{key}},
		})
	}

	screen, err := opts.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	v, err := view.New(screen, store, watches,
		view.WithTitle("furrykeys watch "+path),
		view.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		prev := values
		err := seed.Watch(ctx, path, opts.Config.Debounce, func(next map[string]any, err error) {
			if err != nil {
				logger.Warn("seed reload failed", "path", path, "error", err)
				return
			}
			changes := seed.Diff(prev, next)
			seed.ApplyChanges(setter, changes)
			prev = next
			logger.Info("seed reloaded", "path", path, "changes", len(changes))
		})
		if err != nil {
			logger.Error("seed watch stopped", "path", path, "error", err)
		}
	}()

	err = v.Run(ctx)
	cancel()
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
