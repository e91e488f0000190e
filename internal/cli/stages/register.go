// Package stages provides the pipeline CLI commands: the full run and one
// command per step (validate, synthesize, plan, serialize, codegen, refdocs).
package stages

import (
	"github.com/spf13/cobra"
)

// Register adds all stage commands to the root command.
// This function is called from the root CLI package during initialization.
func Register(rootCmd *cobra.Command) {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(serializeCmd)
	rootCmd.AddCommand(codegenCmd)
	rootCmd.AddCommand(refdocsCmd)
}
