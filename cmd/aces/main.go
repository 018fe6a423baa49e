// Command aces extracts cohorts and labels from a predicate table against a
// declarative task specification (spec.md §1).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aces-go/aces/internal/acerr"
)

func main() {
	root := &cobra.Command{
		Use:           "aces",
		Short:         "extract cohorts and labels from event-stream predicate tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExtractCmd())
	root.AddCommand(newShardCmd())
	root.AddCommand(newValidateCmd())

	if err := root.Execute(); err != nil {
		reportAndExit(err)
	}
}

// reportAndExit is the one place this repository calls os.Exit: the CLI
// boundary surfaces an acerr.Error's kind and offending name, per spec.md
// §6 "Errors propagated at the boundary."
func reportAndExit(err error) {
	if aerr, ok := err.(*acerr.Error); ok {
		fmt.Fprintf(os.Stderr, "aces: %s", aerr.Kind)
		if aerr.Subject != "" {
			fmt.Fprintf(os.Stderr, " %q", aerr.Subject)
		}
		fmt.Fprintf(os.Stderr, ": %s\n", aerr.Message)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "aces: %v\n", err)
	os.Exit(1)
}
