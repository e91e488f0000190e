package cli

import (
	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
)

// Exit codes for the outcomegen CLI (re-exported from shared)
// These codes support programmatic composition and CI/CD integration
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = shared.ExitSuccess

	// ExitFailure indicates invalid input, a validation failure or a toolchain failure
	ExitFailure = shared.ExitFailure

	// ExitRetryExhausted indicates a generation retry budget was exhausted
	ExitRetryExhausted = shared.ExitRetryExhausted

	// ExitInvalidArguments indicates invalid configuration or a missing input
	ExitInvalidArguments = shared.ExitInvalidArguments

	// ExitMissingDependencies indicates a toolchain binary is missing
	ExitMissingDependencies = shared.ExitMissingDependency

	// ExitTimeout indicates a toolchain stage timed out
	ExitTimeout = shared.ExitTimeout

	// ExitBackend indicates the generative backend could not be reached
	ExitBackend = shared.ExitBackend
)

// ExitCode returns the exit code for an error returned by Execute.
func ExitCode(err error) int {
	return shared.ExitCode(err)
}

// Reported reports whether err was already printed by a command.
func Reported(err error) bool {
	return shared.IsReported(err)
}
