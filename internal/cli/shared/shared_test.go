package shared

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want int
	}{
		"nil":           {err: nil, want: ExitSuccess},
		"exit error":    {err: NewExitError(ExitTimeout), want: ExitTimeout},
		"wrapped exit":  {err: fmt.Errorf("x: %w", NewExitError(ExitBackend)), want: ExitBackend},
		"generation":    {err: fmt.Errorf("synthesize: %w", &apperrors.GenerationError{Target: "s"}), want: ExitRetryExhausted},
		"missing tool":  {err: &apperrors.ToolchainMissingError{Tool: "gen-golang"}, want: ExitMissingDependency},
		"plain error":   {err: errors.New("boom"), want: ExitFailure},
		"configuration": {err: &apperrors.ConfigurationError{Key: "k"}, want: ExitInvalidArguments},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{}
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	err := Report(cmd, fmt.Errorf("codegen: %w", &apperrors.ToolchainMissingError{Tool: "linkml-lint"}))
	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Equal(t, ExitMissingDependency, ExitCode(err))
	assert.Contains(t, stderr.String(), "Prerequisite Error: codegen: linkml-lint not found in PATH")
	assert.Contains(t, stderr.String(), "Install linkml-lint")
	assert.True(t, cmd.SilenceUsage)

	stderr.Reset()
	assert.Equal(t, err, Report(cmd, err), "already reported errors pass through")
	assert.Empty(t, stderr.String())
	assert.NoError(t, Report(cmd, nil))
}

func TestWriteOutput(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{}
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)

	require.NoError(t, WriteOutput(cmd, "", []byte("hello\n")))
	assert.Equal(t, "hello\n", stdout.String())

	path := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, WriteOutput(cmd, path, []byte("{}")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
