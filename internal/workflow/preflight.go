package workflow

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ariel-frischer/outcomegen/internal/config"
	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

// PreflightResult contains the results of pre-flight validation
type PreflightResult struct {
	Passed       bool
	FailedChecks []string
	Warnings     []string
	// first failure carrying an exit code, returned by Err
	cause error
}

// Err returns nil when every check passed, otherwise a Prerequisite
// CLIError listing the failures.
func (r *PreflightResult) Err() error {
	if r.Passed {
		return nil
	}
	return &apperrors.CLIError{
		Category:    apperrors.Prerequisite,
		Message:     "pre-flight checks failed:\n  - " + strings.Join(r.FailedChecks, "\n  - "),
		Remediation: []string{"Install the missing tools or set the missing credentials", "Pass --skip-preflight to run anyway"},
		Err:         r.cause,
	}
}

func (r *PreflightResult) fail(err error) {
	r.Passed = false
	r.FailedChecks = append(r.FailedChecks, err.Error())
	if r.cause == nil {
		r.cause = err
	}
}

// RunPreflightChecks verifies credentials and external binaries before a run.
// Performance contract: <100ms
func RunPreflightChecks(cfg *config.Configuration, skipCodegen bool) *PreflightResult {
	return runPreflightChecks(cfg, skipCodegen, exec.LookPath)
}

func runPreflightChecks(cfg *config.Configuration, skipCodegen bool, lookPath func(string) (string, error)) *PreflightResult {
	result := &PreflightResult{Passed: true}

	switch cfg.Backend {
	case config.BackendCommand:
		agent := cfg.AgentCmd
		if cfg.CustomAgentCmd != "" {
			agent = "sh"
		}
		if err := checkCommandExists(agent, lookPath); err != nil {
			result.fail(err)
		}
	default:
		if err := cfg.RequireGeminiKey(); err != nil {
			result.fail(err)
		}
	}

	if cfg.RetrieveRefDocs {
		if err := cfg.RequireSearchKey(); err != nil {
			result.fail(err)
		}
	}

	if !skipCodegen {
		for _, tool := range []string{cfg.LintCmd, cfg.GenerateCmd} {
			if err := checkCommandExists(tool, lookPath); err != nil {
				result.fail(err)
			}
		}
	}

	if info, err := os.Stat(cfg.OutputDir); err == nil && !info.IsDir() {
		result.fail(fmt.Errorf("output_dir %s exists and is not a directory", cfg.OutputDir))
	} else if err == nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("output directory %s exists; artifacts will be overwritten", cfg.OutputDir))
	}

	return result
}

// checkCommandExists verifies that a command is available in PATH
func checkCommandExists(command string, lookPath func(string) (string, error)) error {
	if _, err := lookPath(command); err != nil {
		return &apperrors.ToolchainMissingError{Tool: command}
	}
	return nil
}

// ShouldRunPreflightChecks determines if pre-flight checks should be run
// Checks are skipped in CI/CD environments or if explicitly disabled
func ShouldRunPreflightChecks(skipPreflight bool) bool {
	if skipPreflight {
		return false
	}

	ciEnvVars := []string{"CI", "CONTINUOUS_INTEGRATION", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI"}
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return true
}
