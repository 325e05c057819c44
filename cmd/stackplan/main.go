// Command stackplan renders and checks the stack declaration without
// deploying anything.
//
// Usage:
//
//	stackplan render [--format yaml|json]   Print the declaration
//	stackplan validate                      Check route and service invariants
//	stackplan resolve /stores/health        Show which function a path reaches
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stackplan",
		Short:         "Inspect the e-commerce stack declaration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newRenderCmd(),
		newValidateCmd(),
		newResolveCmd(),
	)
	return rootCmd
}
