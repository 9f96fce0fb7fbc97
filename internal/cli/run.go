package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/furry-keys/scenario"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Trace bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenario files",
		Long: `Run one or more scenario files against fresh stores.

Each scenario reports PASS or FAIL with its failed expectations.
The command fails if any scenario fails.

Example:
  furrykeys run testdata/async_race.yaml
  furrykeys run --trace scenarios/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print each result as JSON")

	return cmd
}

func runScenarios(cmd *cobra.Command, opts *RunOptions, paths []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range paths {
		sc, err := scenario.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		result, err := scenario.Run(cmd.Context(), sc, scenario.WithLogger(opts.Logger))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		opts.Logger.Debug("scenario finished", "name", result.Name, "events", len(result.Trace), "pass", result.Pass)

		if result.Pass {
			fmt.Fprintf(out, "PASS %s (%d events)\n", result.Name, len(result.Trace))
		} else {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", result.Name)
			for _, msg := range result.Errors {
				fmt.Fprintf(out, "  %s\n", msg)
			}
		}
		if opts.Trace {
			data, err := scenario.Marshal(result)
			if err != nil {
				return err
			}
			if err := opts.writeSource(out, data, "json"); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(paths))
	}
	return nil
}
