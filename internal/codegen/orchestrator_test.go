package codegen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

const validSource = `package models

import "time"

type Supplier struct {
	SupplierID string
	IngestedAt time.Time
}
`

// scriptedRunner answers by command name and counts invocations.
type scriptedRunner struct {
	mu      sync.Mutex
	results map[string]Result
	errs    map[string]error
	calls   map[string]int
	args    map[string][]string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		results: map[string]Result{},
		errs:    map[string]error{},
		calls:   map[string]int{},
		args:    map[string][]string{},
	}
}

func (r *scriptedRunner) on(name string, res Result) *scriptedRunner {
	r.results[name] = res
	return r
}

func (r *scriptedRunner) Run(_ context.Context, cmd Command) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[cmd.Name]++
	r.args[cmd.Name] = cmd.Args
	if err := r.errs[cmd.Name]; err != nil {
		return Result{}, err
	}
	return r.results[cmd.Name], nil
}

func (r *scriptedRunner) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

// countingLoader records loads and returns err.
type countingLoader struct {
	err   error
	loads int
	last  Artifact
}

func (l *countingLoader) Name() string { return "counting" }

func (l *countingLoader) Load(_ context.Context, a Artifact) error {
	l.loads++
	l.last = a
	return l.err
}

func foundTools(string) (string, error) { return "/usr/bin/tool", nil }

func testConfig() Config {
	return Config{LintCmd: "linkml-lint", LintArgs: []string{"--validate-only"}, GenerateCmd: "gen-golang"}
}

func TestRun_AllStagesPass(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner().
		on("linkml-lint", Result{ExitCode: 0}).
		on("gen-golang", Result{ExitCode: 0, Stdout: validSource})
	loader := &countingLoader{}
	o := New(testConfig(), runner, loader, WithLookPath(foundTools))

	out := filepath.Join(t.TempDir(), "nested", "dir", "models.go")
	report, err := o.Run(context.Background(), "schema.yaml", out)
	require.NoError(t, err)

	assert.True(t, report.Success)
	require.Len(t, report.Stages, 3)
	assert.Equal(t, strings.Join([]string{
		"[LINT] Schema lint passed",
		"[CODEGEN] Generated " + out,
		"[IMPORT] Successfully imported models",
	}, "\n"), report.Message)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, validSource, string(data))
	require.NotNil(t, report.Artifact)
	assert.Equal(t, Artifact{Path: out, Name: "models"}, *report.Artifact)
	assert.Equal(t, *report.Artifact, loader.last)
	assert.Equal(t, []string{"--validate-only", "schema.yaml"}, runner.args["linkml-lint"])
	assert.Equal(t, []string{"schema.yaml"}, runner.args["gen-golang"])
}

func TestRun_LintWarningsTolerated(t *testing.T) {
	t.Parallel()

	tests := map[string]Result{
		"warning on stdout": {ExitCode: 1, Stdout: "WARNING: slot lacks description"},
		"warning on stderr": {ExitCode: 1, Stderr: "2 warnings"},
	}

	for name, lintResult := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			runner := newScriptedRunner().
				on("linkml-lint", lintResult).
				on("gen-golang", Result{Stdout: validSource})
			o := New(testConfig(), runner, &countingLoader{}, WithLookPath(foundTools))

			report, err := o.Run(context.Background(), "schema.yaml", filepath.Join(t.TempDir(), "models.go"))
			require.NoError(t, err)
			assert.Equal(t, "[LINT] Schema lint passed with warnings (acceptable for MVP)", report.Stages[0].Message)
			assert.True(t, strings.HasPrefix(report.Message, "[LINT] Schema lint passed with warnings (acceptable for MVP)\n"))
			assert.Equal(t, 1, runner.count("gen-golang"))
		})
	}
}

func TestRun_LintFailureStopsPipeline(t *testing.T) {
	t.Parallel()

	tests := map[string]Result{
		"exit 2":                 {ExitCode: 2, Stdout: "error: class Foo undefined"},
		"exit 1 without warning": {ExitCode: 1, Stderr: "error: bad slot"},
	}

	for name, lintResult := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			runner := newScriptedRunner().on("linkml-lint", lintResult)
			loader := &countingLoader{}
			o := New(testConfig(), runner, loader, WithLookPath(foundTools))

			report, err := o.Run(context.Background(), "schema.yaml", filepath.Join(t.TempDir(), "models.go"))

			var tcErr *apperrors.ToolchainError
			require.True(t, errors.As(err, &tcErr), "got %T: %v", err, err)
			assert.Equal(t, lintResult.ExitCode, tcErr.Code)
			assert.False(t, report.Success)
			require.Len(t, report.Stages, 1)
			assert.Contains(t, report.Message, "[LINT] Schema lint failed (exit ")
			assert.Contains(t, report.Message, lintResult.Combined())
			assert.Equal(t, 0, runner.count("gen-golang"))
			assert.Equal(t, 0, loader.loads)
			assert.Nil(t, report.Artifact)
		})
	}
}

func TestRun_GenerateFailure(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner().
		on("linkml-lint", Result{}).
		on("gen-golang", Result{ExitCode: 3, Stdout: "partial", Stderr: "Traceback: boom"})
	loader := &countingLoader{}
	o := New(testConfig(), runner, loader, WithLookPath(foundTools))
	out := filepath.Join(t.TempDir(), "models.go")

	report, err := o.Run(context.Background(), "schema.yaml", out)
	var tcErr *apperrors.ToolchainError
	require.True(t, errors.As(err, &tcErr))
	assert.Equal(t, "generate", tcErr.Stage)
	assert.Equal(t, "[LINT] Schema lint passed\n[CODEGEN] Code generation failed (exit 3):\npartial\nTraceback: boom", report.Message)
	assert.Equal(t, 0, loader.loads)
	assert.NoFileExists(t, out)
}

func TestRun_SmokeFailure(t *testing.T) {
	t.Parallel()

	loadErr := errors.New(`models.go:3:8: import "github.com/acme/missing" error: unable to find source related to: "github.com/acme/missing"`)
	runner := newScriptedRunner().
		on("linkml-lint", Result{}).
		on("gen-golang", Result{Stdout: validSource})
	o := New(testConfig(), runner, &countingLoader{err: loadErr}, WithLookPath(foundTools))

	report, err := o.Run(context.Background(), "schema.yaml", filepath.Join(t.TempDir(), "models.go"))
	var smokeErr *apperrors.SmokeTestError
	require.True(t, errors.As(err, &smokeErr))
	require.ErrorIs(t, err, loadErr)
	assert.Equal(t, "[IMPORT] Import failed:\n"+loadErr.Error(), report.Stages[2].Message)
	assert.True(t, strings.HasSuffix(report.Message, "[IMPORT] Import failed:\n"+loadErr.Error()))
	assert.False(t, report.Success)
}

func TestRun_MissingToolchain(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()
	o := New(testConfig(), runner, &countingLoader{}, WithLookPath(func(name string) (string, error) {
		if name == "gen-golang" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}))

	report, err := o.Run(context.Background(), "schema.yaml", "out.go")
	var missing *apperrors.ToolchainMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "gen-golang", missing.Tool)
	assert.Equal(t, apperrors.ExitMissingDependency, apperrors.ExitCodeOf(err))
	assert.Empty(t, report.Stages)
	assert.Equal(t, 0, runner.count("linkml-lint"))
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner().on("linkml-lint", Result{TimedOut: true, ExitCode: -1})
	cfg := testConfig()
	cfg.StageTimeout = 5 * time.Second
	o := New(cfg, runner, &countingLoader{}, WithLookPath(foundTools))

	_, err := o.Run(context.Background(), "schema.yaml", "out.go")
	var tcErr *apperrors.ToolchainError
	require.True(t, errors.As(err, &tcErr))
	assert.True(t, tcErr.TimedOut)
	assert.Equal(t, 5*time.Second, tcErr.Timeout)
	assert.Equal(t, apperrors.ExitTimeout, apperrors.ExitCodeOf(err))
	assert.Equal(t, 0, runner.count("gen-golang"))
}

func TestRun_StartFailure(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()
	runner.errs["linkml-lint"] = errors.New("permission denied")
	o := New(testConfig(), runner, &countingLoader{}, WithLookPath(foundTools))

	report, err := o.Run(context.Background(), "schema.yaml", "out.go")
	var tcErr *apperrors.ToolchainError
	require.True(t, errors.As(err, &tcErr))
	assert.Contains(t, report.Message, "permission denied")
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	o := New(Config{}, nil, nil)
	assert.Equal(t, DefaultStageTimeout, o.cfg.StageTimeout)
	assert.IsType(t, ExecRunner{}, o.runner)
	assert.IsType(t, YaegiLoader{}, o.loader)
}

func TestStageTag(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[LINT]", StageLint.Tag())
	assert.Equal(t, "[CODEGEN]", StageGenerate.Tag())
	assert.Equal(t, "[IMPORT]", StageSmoke.Tag())
	assert.Equal(t, "[OTHER]", Stage("other").Tag())
}
