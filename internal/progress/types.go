// Package progress renders per-step progress for pipeline runs: a spinner on
// interactive terminals and plain lines otherwise.
package progress

import apperrors "github.com/ariel-frischer/outcomegen/internal/errors"

// StepStatus represents the execution state of a pipeline step
type StepStatus int

const (
	// StepPending indicates the step has not started yet
	StepPending StepStatus = iota
	// StepInProgress indicates the step is currently running
	StepInProgress
	// StepCompleted indicates the step finished successfully
	StepCompleted
	// StepFailed indicates the step failed with an error
	StepFailed
	// StepSkipped indicates the step was not needed for this run
	StepSkipped
)

// String returns the string representation of StepStatus
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepInProgress:
		return "in_progress"
	case StepCompleted:
		return "completed"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepInfo describes a pipeline step for progress display
type StepInfo struct {
	// Name is the step name (e.g., "load", "synthesize", "codegen")
	Name string
	// Number is the current step number (1-based index)
	Number int
	// TotalSteps is the total number of steps in the run
	TotalSteps int
	// Status is the current execution status
	Status StepStatus
	// Detail is an optional suffix such as "attempt 2/3"
	Detail string
}

// Validate checks that all StepInfo fields meet validation requirements
func (p StepInfo) Validate() error {
	if p.Name == "" {
		return apperrors.NewArgumentError("step name cannot be empty")
	}
	if p.Number <= 0 {
		return apperrors.NewArgumentError("step number must be > 0")
	}
	if p.TotalSteps <= 0 {
		return apperrors.NewArgumentError("total steps must be > 0")
	}
	if p.Number > p.TotalSteps {
		return apperrors.NewArgumentError("step number cannot exceed total steps")
	}
	return nil
}

// TerminalCapabilities encapsulates detected terminal features
type TerminalCapabilities struct {
	// IsTTY indicates whether stderr is a terminal (vs pipe/redirect)
	IsTTY bool
	// SupportsColor indicates whether terminal supports ANSI color codes
	SupportsColor bool
	// SupportsUnicode indicates whether terminal supports Unicode characters
	SupportsUnicode bool
	// Width is the terminal width in columns (0 if unknown/pipe)
	Width int
}

// Symbols defines the character set for visual indicators
type Symbols struct {
	// Checkmark is the success indicator ("✓" or "[OK]")
	Checkmark string
	// Failure is the failure indicator ("✗" or "[FAIL]")
	Failure string
	// Skipped is the skip indicator ("-" or "[SKIP]")
	Skipped string
	// SpinnerSet is the index into spinner.CharSets
	SpinnerSet int
}
