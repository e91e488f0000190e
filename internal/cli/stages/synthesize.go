package stages

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/refdocs"
	"github.com/ariel-frischer/outcomegen/internal/synth"
	"github.com/ariel-frischer/outcomegen/internal/workflow"
)

var synthesizeCmd = &cobra.Command{
	Use:     "synthesize <outcome>",
	Aliases: []string{"synth"},
	Short:   "Synthesize a schema specification from an outcome document",
	Long: `Ask the configured backend for a schema specification and print it as JSON.

Candidates that break the naming rules or the class and association caps are
rejected and re-requested, up to synth_max_retries attempts.`,
	Example: `  outcomegen synthesize outcome.yaml > schema.json
  outcomegen synthesize outcome.yaml -o generated/schema.json --refdocs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := shared.LoadRuntime(cmd)
		if err != nil {
			return shared.Report(cmd, err)
		}
		defer rt.Close()

		spec, err := outcome.Load(args[0])
		if err != nil {
			return shared.Report(cmd, err)
		}

		var refs refdocs.Results
		if withRefs, _ := cmd.Flags().GetBool("refdocs"); withRefs && len(spec.OntologyHints) > 0 {
			retriever, err := workflow.NewRetriever(rt.Config, rt.Logger)
			if err != nil {
				return shared.Report(cmd, err)
			}
			refs = retriever.Retrieve(cmd.Context(), spec.OntologyHints)
		}

		backend, err := workflow.NewBackend(cmd.Context(), rt.Config)
		if err != nil {
			return shared.Report(cmd, err)
		}
		synthesizer, err := synth.New(backend,
			synth.WithMaxAttempts(rt.Config.SynthMaxRetries),
			synth.WithLogger(rt.Logger))
		if err != nil {
			return shared.Report(cmd, err)
		}

		s, err := synthesizer.Synthesize(cmd.Context(), spec, refs)
		if err != nil {
			return shared.Report(cmd, err)
		}

		var buf bytes.Buffer
		if err := s.WriteJSON(&buf); err != nil {
			return shared.Report(cmd, err)
		}
		output, _ := cmd.Flags().GetString("output")
		return shared.Report(cmd, shared.WriteOutput(cmd, output, buf.Bytes()))
	},
}

func init() {
	synthesizeCmd.GroupID = shared.GroupSteps
	synthesizeCmd.Flags().StringP("output", "o", "", "Write the schema JSON to a file instead of stdout")
	synthesizeCmd.Flags().Bool("refdocs", false, "Retrieve ontology reference documentation first")
}
