package util

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "View pipeline run history",
	Long: `View recorded pipeline runs with their start time, status, exit code,
duration, schema name and outcome document.

With a run ID (or a prefix of at least four characters) the single run is
shown in full, including the error that aborted it.`,
	Example: `  outcomegen history
  outcomegen history -n 5 --status failed
  outcomegen history 5f1a2b3c`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stateDir, err := history.DefaultStateDir()
		if err != nil {
			return shared.Report(cmd, err)
		}
		return shared.Report(cmd, runHistory(cmd, stateDir, args))
	},
}

func init() {
	historyCmd.GroupID = shared.GroupConfiguration
	historyCmd.Flags().IntP("limit", "n", 0, "Limit to last N runs (most recent)")
	historyCmd.Flags().String("status", "", "Filter by status (running, completed, failed, cancelled)")
	historyCmd.Flags().Bool("clear", false, "Clear all history")
}

func runHistory(cmd *cobra.Command, stateDir string, args []string) error {
	clearFlag, _ := cmd.Flags().GetBool("clear")
	statusFilter, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	if limit < 0 {
		return apperrors.NewArgumentError(fmt.Sprintf("limit must be positive, got %d", limit))
	}

	if clearFlag {
		if err := history.Clear(stateDir); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return nil
	}

	file, err := history.Load(stateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if len(args) == 1 {
		entry, ok := file.Find(args[0])
		if !ok {
			return apperrors.NewArgumentError(fmt.Sprintf("no run matching %q", args[0]))
		}
		displayEntry(cmd, entry)
		return nil
	}

	var entries []history.Entry
	for _, e := range file.Recent(0) {
		if statusFilter != "" && e.Status != statusFilter {
			continue
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) == limit {
			break
		}
	}

	if len(entries) == 0 {
		if statusFilter != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "No runs with status '%s'.\n", statusFilter)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No history available.")
		}
		return nil
	}

	for _, e := range entries {
		schemaName := e.Schema
		if schemaName == "" {
			schemaName = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-9s  exit %d  %-8s  %-20s  %s\n",
			shortID(e.ID), e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			paintStatus(e.Status), e.ExitCode, orDash(e.Duration), schemaName, e.Outcome)
	}
	return nil
}

func displayEntry(cmd *cobra.Command, e history.Entry) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:        %s\n", e.ID)
	fmt.Fprintf(out, "outcome:    %s\n", e.Outcome)
	fmt.Fprintf(out, "status:     %s\n", paintStatus(e.Status))
	fmt.Fprintf(out, "exit code:  %d\n", e.ExitCode)
	fmt.Fprintf(out, "started:    %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "duration:   %s\n", orDash(e.Duration))
	fmt.Fprintf(out, "schema:     %s\n", orDash(e.Schema))
	fmt.Fprintf(out, "output dir: %s\n", orDash(e.OutputDir))
	if e.Error != "" {
		fmt.Fprintf(out, "error:      %s\n", e.Error)
	}
}

func paintStatus(status string) string {
	switch status {
	case history.StatusCompleted:
		return color.New(color.FgGreen).Sprint(status)
	case history.StatusFailed:
		return color.New(color.FgRed).Sprint(status)
	case history.StatusRunning, history.StatusCancelled:
		return color.New(color.FgYellow).Sprint(status)
	default:
		return status
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
