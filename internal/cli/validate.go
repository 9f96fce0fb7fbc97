package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/furry-keys/scenario"
	"github.com/odvcencio/furry-keys/seed"
	"github.com/odvcencio/furry-keys/state"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Seed bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate scenario or seed files",
		Long: `Validate scenario files without running them, or seed files with --seed.

A seed must be a mapping at its root; lists, scalars and empty
documents other than an empty file are rejected.

Example:
  furrykeys validate scenarios/*.yaml
  furrykeys validate --seed state.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				detail, err := validateFile(path, opts.Seed)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(out, "ok %s (%s)\n", path, detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "validate seed files instead of scenarios")

	return cmd
}

func validateFile(path string, isSeed bool) (string, error) {
	if isSeed {
		values, err := seed.Load(path)
		if err != nil {
			return "", err
		}
		if _, err := state.NewStoreFromAny[string](values); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d keys", len(values)), nil
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d readers, %d steps", len(sc.Readers), len(sc.Steps)), nil
}
