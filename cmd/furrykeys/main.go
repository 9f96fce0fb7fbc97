// Command furrykeys drives a reactive key/value store from files.
//
// Usage:
//
//	furrykeys run scenario.yaml       # Run a scenario and check its expectations
//	furrykeys validate scenario.yaml  # Validate without running
//	furrykeys dump state.yaml         # Print a seed as a table
//	furrykeys watch state.yaml        # Live view while the seed changes
//	furrykeys version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/odvcencio/furry-keys/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
