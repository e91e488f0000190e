package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Exit codes carried by pipeline errors.
const (
	ExitFailure           = 1
	ExitRetryExhausted    = 2
	ExitInvalidInput      = 3
	ExitMissingDependency = 4
	ExitTimeout           = 5
	ExitBackend           = 6
)

// ExitCoder is implemented by errors that map to a process exit code.
type ExitCoder interface {
	ExitCode() int
}

// ConfigurationError reports a missing credential or invalid configuration.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Message)
}

func (e *ConfigurationError) ExitCode() int { return ExitInvalidInput }

// NotFoundError reports a missing input document.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.Path)
}

func (e *NotFoundError) ExitCode() int { return ExitInvalidInput }

// ParseError reports a document that is not well-formed.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) ExitCode() int { return ExitFailure }

// ValidationError reports structural violations of an input document or of
// generated output. Problems lists every violation found.
type ValidationError struct {
	Subject  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Subject, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) ExitCode() int { return ExitFailure }

// BackendError reports a generative-backend communication failure.
// It is never retried.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) ExitCode() int { return ExitBackend }

// GenerationError reports that the retry budget was exhausted while shaping
// guarded output. Reason is the last validation failure.
type GenerationError struct {
	Target   string
	Attempts int
	Reason   string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation of %s failed after %d attempts: %s", e.Target, e.Attempts, e.Reason)
}

func (e *GenerationError) ExitCode() int { return ExitRetryExhausted }

// ToolchainMissingError reports an external binary absent from PATH.
type ToolchainMissingError struct {
	Tool string
}

func (e *ToolchainMissingError) Error() string {
	return fmt.Sprintf("%s not found in PATH", e.Tool)
}

func (e *ToolchainMissingError) ExitCode() int { return ExitMissingDependency }

// ToolchainError reports a lint or generate failure.
type ToolchainError struct {
	Stage    string
	Command  string
	Code     int
	Output   string
	TimedOut bool
	Timeout  time.Duration
}

func (e *ToolchainError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s: command timed out after %s: %s", e.Stage, e.Timeout, e.Command)
	}
	return fmt.Sprintf("%s: %s exited with code %d", e.Stage, e.Command, e.Code)
}

func (e *ToolchainError) ExitCode() int {
	if e.TimedOut {
		return ExitTimeout
	}
	return ExitFailure
}

// SmokeTestError reports a generated artifact that fails to load.
type SmokeTestError struct {
	Artifact string
	Err      error
}

func (e *SmokeTestError) Error() string {
	return fmt.Sprintf("smoke test of %s failed: %v", e.Artifact, e.Err)
}

func (e *SmokeTestError) Unwrap() error { return e.Err }

func (e *SmokeTestError) ExitCode() int { return ExitFailure }

// ExitCodeOf returns the exit code carried by err's chain, or ExitFailure.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if stderrors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitFailure
}

// ToCLIError converts a pipeline error into a CLIError with remediation hints.
func ToCLIError(err error) *CLIError {
	if err == nil {
		return nil
	}
	if cliErr := AsCLIError(err); cliErr != nil {
		return cliErr
	}

	var (
		cfgErr     *ConfigurationError
		notFound   *NotFoundError
		parseErr   *ParseError
		missing    *ToolchainMissingError
		genErr     *GenerationError
		backendErr *BackendError
		toolErr    *ToolchainError
	)
	switch {
	case stderrors.As(err, &cfgErr):
		return Wrap(err, Configuration,
			"Set the value in .outcomegen/config.json or via an OUTCOMEGEN_* environment variable",
			"Run 'outcomegen config show' to inspect the effective configuration")
	case stderrors.As(err, &notFound):
		return Wrap(err, Prerequisite, "Check the path to the outcome document")
	case stderrors.As(err, &parseErr):
		return Wrap(err, Argument, "Fix the syntax error reported above")
	case stderrors.As(err, &missing):
		return Wrap(err, Prerequisite,
			fmt.Sprintf("Install %s and make sure it is on PATH", missing.Tool),
			"Or point lint_cmd/generate_cmd at the installed binaries")
	case stderrors.As(err, &genErr):
		return Wrap(err, Runtime,
			"Re-run the command; generation is non-deterministic",
			"Raise synth_max_retries or plan_max_retries if failures persist")
	case stderrors.As(err, &backendErr):
		return Wrap(err, Runtime, "Check network access, credentials and quota for the backend")
	case stderrors.As(err, &toolErr) && toolErr.TimedOut:
		return Wrap(err, Runtime, "Increase stage_timeout in config")
	default:
		return Wrap(err, Runtime)
	}
}
