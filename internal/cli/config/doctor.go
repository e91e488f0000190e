package config

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	"github.com/ariel-frischer/outcomegen/internal/workflow"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check credentials and toolchain binaries",
	Long: `Run the pre-flight checks used by 'outcomegen run' and report each failure:
backend credentials or agent command, search credentials when reference
retrieval is enabled, and the lint and generate binaries.`,
	Example: `  outcomegen doctor`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := shared.LoadRuntime(cmd)
		if err != nil {
			return shared.Report(cmd, err)
		}
		defer rt.Close()

		result := workflow.RunPreflightChecks(rt.Config, false)
		out := cmd.OutOrStdout()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Fprintf(out, "backend: %s\n", rt.Config.Backend)
		fmt.Fprintf(out, "toolchain: %s, %s (smoke loader %s)\n", rt.Config.LintCmd, rt.Config.GenerateCmd, rt.Config.SmokeLoader)
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "%s %s\n", yellow("WARN"), w)
		}
		for _, f := range result.FailedChecks {
			fmt.Fprintf(out, "%s %s\n", red("FAIL"), f)
		}
		if result.Passed {
			fmt.Fprintf(out, "%s all checks passed\n", green("OK"))
			return nil
		}
		return shared.Report(cmd, result.Err())
	},
}

func init() {
	doctorCmd.GroupID = shared.GroupConfiguration
}
