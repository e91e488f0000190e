package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/outcomegen/internal/codegen"
	"github.com/ariel-frischer/outcomegen/internal/config"
	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/generate"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	cmd, err := NewBackend(context.Background(), &config.Configuration{
		Backend:        config.BackendCommand,
		AgentCmd:       "claude",
		AgentArgs:      []string{"-p"},
		BackendTimeout: 30,
	})
	require.NoError(t, err)
	backend, ok := cmd.(*generate.CommandBackend)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, backend.Timeout)
	assert.Equal(t, []string{"-p"}, backend.Args)

	_, err = NewBackend(context.Background(), &config.Configuration{Backend: config.BackendGemini})
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewBackend(context.Background(), &config.Configuration{Backend: "carrier-pigeon"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "backend", cfgErr.Key)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	var deadline bool
	inner := generate.BackendFunc(func(ctx context.Context, _ generate.Request) (string, error) {
		_, deadline = ctx.Deadline()
		return "{}", nil
	})

	_, err := withTimeout(inner, time.Minute).Generate(context.Background(), generate.Request{})
	require.NoError(t, err)
	assert.True(t, deadline)

	assert.IsType(t, inner, withTimeout(inner, 0))
}

func TestNewCodegen(t *testing.T) {
	t.Parallel()

	o, err := NewCodegen(&config.Configuration{SmokeLoader: codegen.LoaderPackages, LintCmd: "l", GenerateCmd: "g"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, o)

	_, err = NewCodegen(&config.Configuration{SmokeLoader: "wasm"}, nil)
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "smoke_loader", cfgErr.Key)
}
