// Package cli implements the furrykeys command line.
package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/odvcencio/furry-keys/config"
	"github.com/odvcencio/furry-keys/render"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X github.com/odvcencio/furry-keys/internal/cli.Version=1.0.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// RootOptions holds global flags and the settings resolved from them.
type RootOptions struct {
	ConfigPath string
	NoColor    bool

	Config config.Config
	Logger *slog.Logger

	// NewScreen opens the terminal for watch. Tests swap in a simulation screen.
	NewScreen func() (tcell.Screen, error)
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{NewScreen: tcell.NewScreen})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "furrykeys",
		Short: "Reactive key/value store toolkit",
		Long: `furrykeys drives a reactive key/value store from files.

It runs scripted scenarios against the store, dumps seed files, and
watches a seed file while showing live reader values in the terminal.

Settings come from --config, then FURRYKEYS_* environment variables:
  FURRYKEYS_LOG_LEVEL   debug|info|warn|error
  FURRYKEYS_LOG_FORMAT  text|json
  FURRYKEYS_SEED        default seed file
  FURRYKEYS_COLOR       highlight YAML and JSON output
  FURRYKEYS_STYLE       chroma style name
  FURRYKEYS_DEBOUNCE    seed reload debounce`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.NoColor {
				cfg.Color = false
			}
			logger, err := cfg.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.Config = cfg
			opts.Logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable syntax highlighting")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// writeSource writes YAML or JSON source, highlighted when colour is on.
func (o *RootOptions) writeSource(w io.Writer, src []byte, language string) error {
	if !o.Config.Color {
		_, err := w.Write(src)
		return err
	}
	var buf bytes.Buffer
	if err := render.Highlight(&buf, string(src), language, o.Config.Style); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
