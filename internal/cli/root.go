// Package cli provides Cobra-based CLI commands for outcomegen.
// It defines the full pipeline command (run), one command per pipeline step
// (validate, synthesize, plan, serialize, codegen, refdocs), configuration
// inspection (config show, doctor) and version.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/config"
	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	"github.com/ariel-frischer/outcomegen/internal/cli/stages"
	"github.com/ariel-frischer/outcomegen/internal/cli/util"
)

// Command group IDs for organizing help output (re-exported from shared)
const (
	GroupPipeline      = shared.GroupPipeline
	GroupSteps         = shared.GroupSteps
	GroupConfiguration = shared.GroupConfiguration
)

var rootCmd = &cobra.Command{
	Use:   "outcomegen",
	Short: "Outcome-driven schema synthesis and code generation",
	Long: `outcomegen turns a business outcome document into a data model.

An outcome (goal, questions, required evidence, target entities, relations and
ontology hints) is sent to a generative backend to synthesize a bounded
schema. The schema is rendered as LinkML, each question is mapped to an
evidence query plan, and the LinkML toolchain generates Go source that is
smoke-loaded before the run is reported as successful.`,
	Example: `  # Full pipeline
  outcomegen run outcome.yaml

  # One step at a time
  outcomegen validate outcome.yaml
  outcomegen synthesize outcome.yaml -o generated/schema.json
  outcomegen serialize generated/schema.json -o generated/schema.yaml
  outcomegen plan outcome.yaml --schema generated/schema.json
  outcomegen codegen generated/schema.yaml`,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: GroupPipeline, Title: "Pipeline:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupSteps, Title: "Steps:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupConfiguration, Title: "Configuration:"})

	rootCmd.SetHelpCommandGroupID(GroupConfiguration)
	rootCmd.SetCompletionCommandGroupID(GroupConfiguration)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", ".outcomegen/config.json", "Path to config file")
	rootCmd.PersistentFlags().String("output-dir", "", "Directory for generated artifacts (overrides output_dir)")
	rootCmd.PersistentFlags().Bool("skip-preflight", false, "Skip pre-flight validation checks")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console or json")
	rootCmd.PersistentFlags().Bool("no-progress", false, "Disable the step progress display")

	stages.Register(rootCmd)
	config.Register(rootCmd)
	util.Register(rootCmd)
}
