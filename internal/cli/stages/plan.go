package stages

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/planner"
	"github.com/ariel-frischer/outcomegen/internal/schema"
	"github.com/ariel-frischer/outcomegen/internal/workflow"
)

var planCmd = &cobra.Command{
	Use:   "plan <outcome> --schema <schema.json>",
	Short: "Plan evidence queries for each outcome question",
	Long: `Map every question of the outcome document onto the classes and
associations of a synthesized schema. One plan is produced per question, in
question order. Plans naming unknown schema elements are re-requested up to
plan_max_retries attempts.`,
	Example: `  outcomegen plan outcome.yaml --schema generated/schema.json
  outcomegen plan outcome.yaml --schema generated/schema.json -o plans.json`,
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
		schemaPath, _ := cmd.Flags().GetString("schema")
		s, err := schema.Load(schemaPath)
		if err != nil {
			return shared.Report(cmd, err)
		}

		backend, err := workflow.NewBackend(cmd.Context(), rt.Config)
		if err != nil {
			return shared.Report(cmd, err)
		}
		p, err := planner.New(backend,
			planner.WithMaxAttempts(rt.Config.PlanMaxRetries),
			planner.WithConcurrency(rt.Config.PlanConcurrency),
			planner.WithLogger(rt.Logger))
		if err != nil {
			return shared.Report(cmd, err)
		}

		plans, err := p.Plan(cmd.Context(), spec, s)
		if err != nil {
			return shared.Report(cmd, err)
		}

		var buf bytes.Buffer
		if err := planner.WriteJSON(&buf, plans); err != nil {
			return shared.Report(cmd, err)
		}
		output, _ := cmd.Flags().GetString("output")
		return shared.Report(cmd, shared.WriteOutput(cmd, output, buf.Bytes()))
	},
}

func init() {
	planCmd.GroupID = shared.GroupSteps
	planCmd.Flags().String("schema", "", "Path to a synthesized schema.json (required)")
	planCmd.Flags().StringP("output", "o", "", "Write the plans JSON to a file instead of stdout")
	_ = planCmd.MarkFlagRequired("schema")
}
