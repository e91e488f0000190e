package stages

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	"github.com/ariel-frischer/outcomegen/internal/workflow"
)

var codegenCmd = &cobra.Command{
	Use:   "codegen <schema.yaml>",
	Short: "Lint a LinkML schema, generate Go source and smoke-load it",
	Long: `Run the code generation stages against a LinkML schema:

  [LINT]     lint_cmd <schema.yaml>   (warnings are accepted)
  [CODEGEN]  generate_cmd <schema.yaml> > <output>
  [IMPORT]   load the generated source with smoke_loader

The first failing stage stops the run and its message is printed.`,
	Example: `  outcomegen codegen generated/schema.yaml
  outcomegen codegen generated/schema.yaml -o generated/models.go`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := shared.LoadRuntime(cmd)
		if err != nil {
			return shared.Report(cmd, err)
		}
		defer rt.Close()

		orch, err := workflow.NewCodegen(rt.Config, rt.Logger)
		if err != nil {
			return shared.Report(cmd, err)
		}
		if err := orch.Preflight(); err != nil {
			return shared.Report(cmd, err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = rt.Config.OutputPath()
		}

		report, err := orch.Run(cmd.Context(), args[0], output)
		if report != nil {
			w := cmd.OutOrStdout()
			if !report.Success {
				w = cmd.ErrOrStderr()
			}
			fmt.Fprintln(w, report.Message)
		}
		return shared.Report(cmd, err)
	},
}

func init() {
	codegenCmd.GroupID = shared.GroupSteps
	codegenCmd.Flags().StringP("output", "o", "", "Path of the generated source (default output_dir/output_file)")
}
