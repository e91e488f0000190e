package stages

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <document>",
	Short: "Validate an outcome document (or a schema.json with --schema)",
	Long: `Parse and validate a document without calling any backend.

Outcome documents may be YAML or JSON. With --schema the document is read as
a synthesized schema.json and checked against the class and association caps
and naming rules.`,
	Example: `  outcomegen validate outcome.yaml
  outcomegen validate generated/schema.json --schema`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asSchema, _ := cmd.Flags().GetBool("schema")
		ok := color.New(color.FgGreen).SprintFunc()

		if asSchema {
			s, err := schema.Load(args[0])
			if err != nil {
				return shared.Report(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: schema %s with %d classes and %d associations\n",
				ok("valid"), args[0], s.SchemaName, len(s.Classes), len(s.Associations))
			return nil
		}

		spec, err := outcome.Load(args[0])
		if err != nil {
			return shared.Report(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d questions, %d evidence sources, %d ontology hints\n",
			ok("valid"), args[0], len(spec.Questions), len(spec.RequiredEvidence), len(spec.OntologyHints))
		return nil
	},
}

func init() {
	validateCmd.GroupID = shared.GroupSteps
	validateCmd.Flags().Bool("schema", false, "Treat the document as a schema.json")
}
