// Package config tests configuration loading, merging hierarchy, and environment variable overrides.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

// isolate points HOME at an empty directory and clears credential variables.
// Callers cannot use t.Parallel() because t.Setenv is used.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("TAVILY_API_KEY", "")
	return tmpDir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendGemini, cfg.Backend)
	assert.Equal(t, 3, cfg.SynthMaxRetries)
	assert.Equal(t, 2, cfg.PlanMaxRetries)
	assert.Equal(t, 1, cfg.PlanConcurrency)
	assert.Equal(t, "linkml-lint", cfg.LintCmd)
	assert.Equal(t, "gen-golang", cfg.GenerateCmd)
	assert.Equal(t, LoaderYaegi, cfg.SmokeLoader)
	assert.Equal(t, 60*time.Second, cfg.StageTimeoutDuration())
	assert.Equal(t, filepath.Join("generated", "models.go"), cfg.OutputPath())
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoad_LocalOverride(t *testing.T) {
	isolate(t)

	configPath := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"synth_max_retries": 5,
		"generate_cmd": "gen-pydantic",
		"stage_timeout": 30
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.SynthMaxRetries)
	assert.Equal(t, "gen-pydantic", cfg.GenerateCmd)
	assert.Equal(t, 30*time.Second, cfg.StageTimeoutDuration())
}

func TestLoad_GlobalThenLocal(t *testing.T) {
	home := isolate(t)

	globalDir := filepath.Join(home, ".outcomegen")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.json"),
		[]byte(`{"plan_max_retries": 4, "log_level": "debug"}`), 0644))

	localPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(localPath, []byte(`{"plan_max_retries": 6}`), 0644))

	cfg, err := Load(localPath)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.PlanMaxRetries, "local overrides global")
	assert.Equal(t, "debug", cfg.LogLevel, "global overrides defaults")
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("OUTCOMEGEN_SYNTH_MAX_RETRIES", "7")
	t.Setenv("OUTCOMEGEN_LINT_CMD", "my-lint")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.SynthMaxRetries)
	assert.Equal(t, "my-lint", cfg.LintCmd)
}

func TestLoad_CredentialAliases(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("TAVILY_API_KEY", "tav-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gem-key", cfg.GeminiAPIKey)
	assert.Equal(t, "tav-key", cfg.SearchAPIKey)
	assert.NoError(t, cfg.RequireGeminiKey())
	assert.NoError(t, cfg.RequireSearchKey())
}

func TestLoad_PrefixedCredentialWins(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "alias")
	t.Setenv("OUTCOMEGEN_GEMINI_API_KEY", "prefixed")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.GeminiAPIKey)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := map[string]string{
		"retries out of range":   `{"synth_max_retries": 0}`,
		"unknown backend":        `{"backend": "oracle"}`,
		"unknown smoke loader":   `{"smoke_loader": "python"}`,
		"custom cmd no prompt":   `{"custom_agent_cmd": "claude -p"}`,
		"command backend no cmd": `{"backend": "command", "agent_cmd": ""}`,
		"bad search url":         `{"search_url": "not a url"}`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			configPath := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

			_, err := Load(configPath)
			require.Error(t, err)
			var cfgErr *apperrors.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %T", err)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"backend": `), 0644))

	_, err := Load(configPath)
	var cfgErr *apperrors.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRequireCredentials(t *testing.T) {
	t.Parallel()

	cfg := &Configuration{GeminiAPIKey: "  "}
	err := cfg.RequireGeminiKey()
	var cfgErr *apperrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "gemini_api_key", cfgErr.Key)

	err = cfg.RequireSearchKey()
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "search_api_key", cfgErr.Key)
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	cfg := Configuration{GeminiAPIKey: "secret", SearchAPIKey: ""}
	red := cfg.Redacted()
	assert.Equal(t, "********", red.GeminiAPIKey)
	assert.Empty(t, red.SearchAPIKey)
	assert.Equal(t, "secret", cfg.GeminiAPIKey, "original is untouched")
}

func TestToMap(t *testing.T) {
	t.Parallel()

	m := ToMap(Configuration{Backend: BackendCommand, SynthMaxRetries: 4, LintArgs: []string{"--strict"}})
	assert.Equal(t, BackendCommand, m["backend"])
	assert.Equal(t, 4, m["synth_max_retries"])
	assert.Equal(t, []string{"--strict"}, m["lint_args"])
	assert.Len(t, m, len(GetDefaults())+2, "every key except the two credentials has a default")
}
