// Package shared provides constants and helpers used across CLI subpackages.
// This package has no dependencies on other CLI packages to avoid circular imports.
package shared

import (
	stderrors "errors"
	"fmt"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

// Command group IDs for organizing help output
const (
	GroupPipeline      = "pipeline"
	GroupSteps         = "steps"
	GroupConfiguration = "configuration"
)

// Exit codes for CLI commands
const (
	ExitSuccess           = 0
	ExitFailure           = apperrors.ExitFailure
	ExitRetryExhausted    = apperrors.ExitRetryExhausted
	ExitInvalidArguments  = apperrors.ExitInvalidInput
	ExitMissingDependency = apperrors.ExitMissingDependency
	ExitTimeout           = apperrors.ExitTimeout
	ExitBackend           = apperrors.ExitBackend
)

// exitError carries an exit code for an error that was already reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// NewExitError creates a new exit error with the given code.
func NewExitError(code int) error {
	return &exitError{code: code}
}

// IsReported reports whether err was already printed by the command.
func IsReported(err error) bool {
	var e *exitError
	return stderrors.As(err, &e)
}

// ExitCode returns the exit code from an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *exitError
	if stderrors.As(err, &e) {
		return e.code
	}
	return apperrors.ExitCodeOf(err)
}
