package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/history"
	"github.com/ariel-frischer/outcomegen/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run <outcome>",
	Short: "Run the full pipeline for an outcome document",
	Long: `Run every pipeline step for an outcome document:

  load -> refdocs (optional) -> synthesize -> serialize -> plan -> write -> codegen

Artifacts (schema.yaml, core.yaml, schema.json, plans.json and the generated
source) are written under output_dir. The first failing step aborts the run.`,
	Example: `  # Full pipeline with the configured backend
  outcomegen run outcome.yaml

  # Stop after the schema and plans are written
  outcomegen run outcome.yaml --skip-codegen

  # Fetch ontology reference pages first
  outcomegen run outcome.yaml --refdocs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := shared.LoadRuntime(cmd)
		if err != nil {
			return shared.Report(cmd, err)
		}
		defer rt.Close()

		skipCodegen, _ := cmd.Flags().GetBool("skip-codegen")
		skipPreflight, _ := cmd.Flags().GetBool("skip-preflight")
		if cmd.Flags().Changed("refdocs") {
			rt.Config.RetrieveRefDocs, _ = cmd.Flags().GetBool("refdocs")
		}

		if workflow.ShouldRunPreflightChecks(skipPreflight) {
			pre := workflow.RunPreflightChecks(rt.Config, skipCodegen)
			for _, w := range pre.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			if err := pre.Err(); err != nil {
				return shared.Report(cmd, err)
			}
		}

		runID := uuid.NewString()
		opts := []workflow.DriverOption{
			workflow.WithRunID(runID),
			workflow.WithLogger(rt.Logger),
			workflow.WithDisplay(rt.Display()),
		}
		if skipCodegen {
			opts = append(opts, workflow.WithoutCodegen())
		}
		driver, err := workflow.NewDriver(rt.Config, workflow.Dependencies{}, opts...)
		if err != nil {
			return shared.Report(cmd, err)
		}

		recorder := newRunRecorder(rt.Logger)
		recorder.start(runID, args[0], rt.Config.OutputDir)
		started := time.Now()
		res, err := driver.Run(cmd.Context(), args[0])
		recorder.complete(runID, res, err, time.Since(started))

		if res != nil && res.Codegen != nil && !res.Codegen.Success {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Codegen.Message)
		}
		if err != nil {
			return shared.Report(cmd, err)
		}
		printSummary(cmd.OutOrStdout(), res)
		return nil
	},
}

// runRecorder writes run history; failures to record are logged and never
// fail the run.
type runRecorder struct {
	writer *history.Writer
	logger *zap.Logger
}

func newRunRecorder(logger *zap.Logger) *runRecorder {
	stateDir, err := history.DefaultStateDir()
	if err != nil {
		logger.Warn("run history disabled", zap.Error(err))
		return &runRecorder{logger: logger}
	}
	return &runRecorder{writer: history.NewWriter(stateDir, history.DefaultMaxEntries), logger: logger}
}

func (r *runRecorder) start(runID, outcomePath, outputDir string) {
	if r.writer == nil {
		return
	}
	if err := r.writer.Start(runID, outcomePath, outputDir); err != nil {
		r.logger.Warn("failed to record run start", zap.Error(err))
		r.writer = nil
	}
}

func (r *runRecorder) complete(runID string, res *workflow.Result, runErr error, elapsed time.Duration) {
	if r.writer == nil {
		return
	}
	c := history.Completion{
		Status:   history.StatusCompleted,
		ExitCode: apperrors.ExitCodeOf(runErr),
		Duration: elapsed,
		Err:      runErr,
	}
	switch {
	case errors.Is(runErr, context.Canceled):
		c.Status = history.StatusCancelled
	case runErr != nil:
		c.Status = history.StatusFailed
	}
	if res != nil && res.Schema != nil {
		c.Schema = res.Schema.SchemaName
	}
	if err := r.writer.Complete(runID, c); err != nil {
		r.logger.Warn("failed to record run completion", zap.Error(err))
	}
}

func printSummary(w io.Writer, res *workflow.Result) {
	fmt.Fprintf(w, "run %s\n", res.RunID)
	fmt.Fprintf(w, "schema %s: %d classes, %d associations, %d plans\n",
		res.Schema.SchemaName, len(res.Schema.Classes), len(res.Schema.Associations), len(res.Plans))
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "  note: %s\n", d)
	}
	for _, path := range []string{
		res.Artifacts.SchemaYAML, res.Artifacts.CoreYAML, res.Artifacts.SchemaJSON,
		res.Artifacts.PlansJSON, res.Artifacts.Source,
	} {
		if path != "" {
			fmt.Fprintf(w, "  wrote %s\n", path)
		}
	}
	if res.Codegen != nil {
		fmt.Fprintln(w, res.Codegen.Message)
	}
}

func init() {
	runCmd.GroupID = shared.GroupPipeline
	runCmd.Flags().Bool("skip-codegen", false, "Stop after writing schema and plan artifacts")
	runCmd.Flags().Bool("refdocs", false, "Retrieve ontology reference documentation before synthesis")
}
