// Package util provides utility CLI commands for outcomegen.
// Includes: version, history
package util

import (
	"github.com/spf13/cobra"
)

// Register adds all utility commands to the root command.
// This function is called from the root CLI package during initialization.
func Register(rootCmd *cobra.Command) {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(historyCmd)
}
