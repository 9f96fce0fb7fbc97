package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/furry-keys/render"
	"github.com/odvcencio/furry-keys/seed"
	"github.com/odvcencio/furry-keys/state"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Format string
	Width  int
}

var dumpFormats = []string{"table", "yaml", "json"}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump [seed]",
		Short: "Load a seed into a store and print it",
		Long: `Load a seed file (YAML, TOML or JSON) into a fresh store and print
its committed values. The seed defaults to the configured seed file.

Example:
  furrykeys dump state.yaml
  furrykeys dump --format yaml state.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.Config.Seed
			if len(args) == 1 {
				path = args[0]
			}
			return runDump(cmd, opts, path)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "output format (table|yaml|json)")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "truncate table values to this many columns (0 for no limit)")

	return cmd
}

func openSeed(path string) (*state.Store[string], map[string]any, error) {
	if path == "" {
		return nil, nil, errors.New("no seed file: pass one or set FURRYKEYS_SEED")
	}
	values, err := seed.Load(path)
	if err != nil {
		return nil, nil, err
	}
	store, err := state.NewStoreFromAny[string](values)
	if err != nil {
		return nil, nil, err
	}
	return store, values, nil
}

func runDump(cmd *cobra.Command, opts *DumpOptions, path string) error {
	store, _, err := openSeed(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	switch opts.Format {
	case "table":
		return render.Table(out, []string{"KEY", "VALUE", "READERS"}, render.StoreRows(store), opts.Width)
	case "yaml":
		var buf bytes.Buffer
		if err := render.YAML(&buf, store.Snapshot()); err != nil {
			return err
		}
		return opts.writeSource(out, buf.Bytes(), "yaml")
	case "json":
		data, err := json.MarshalIndent(store.Snapshot(), "", "  ")
		if err != nil {
			return err
		}
		return opts.writeSource(out, append(data, '\n'), "json")
	default:
		return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, dumpFormats)
	}
}
