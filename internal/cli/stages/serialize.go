package stages

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	"github.com/ariel-frischer/outcomegen/internal/linkml"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/schema"
)

var serializeCmd = &cobra.Command{
	Use:   "serialize <schema.json>",
	Short: "Render a schema specification as a LinkML document",
	Long: `Convert a synthesized schema.json into a LinkML YAML document.

The output is deterministic. Associations whose subject class does not exist
are dropped and reported on stderr. When writing to a file, the shared core
fragment (core.yaml) is written next to it so the import resolves.`,
	Example: `  outcomegen serialize generated/schema.json
  outcomegen serialize generated/schema.json --outcome outcome.yaml -o generated/schema.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(args[0])
		if err != nil {
			return shared.Report(cmd, err)
		}

		var hints []outcome.OntologyHint
		if outcomePath, _ := cmd.Flags().GetString("outcome"); outcomePath != "" {
			spec, err := outcome.Load(outcomePath)
			if err != nil {
				return shared.Report(cmd, err)
			}
			hints = spec.OntologyHints
		}

		doc, diagnostics := linkml.SerializeWithHints(s, hints)
		for _, d := range diagnostics {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", d)
		}

		output, _ := cmd.Flags().GetString("output")
		if err := shared.WriteOutput(cmd, output, doc); err != nil {
			return shared.Report(cmd, err)
		}
		if output != "" {
			core := filepath.Join(filepath.Dir(output), linkml.CoreImport+".yaml")
			return shared.Report(cmd, shared.WriteOutput(cmd, core, linkml.CoreSchema()))
		}
		return nil
	},
}

func init() {
	serializeCmd.GroupID = shared.GroupSteps
	serializeCmd.Flags().String("outcome", "", "Outcome document whose ontology hints become prefixes")
	serializeCmd.Flags().StringP("output", "o", "", "Write the YAML to a file instead of stdout")
}
