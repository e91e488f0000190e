// Package config loads the outcomegen configuration. Values are layered with
// koanf: defaults < global (~/.outcomegen/config.json) < local config <
// OUTCOMEGEN_* environment variables. Credentials are read once here and the
// resulting Configuration is passed explicitly to every component.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "OUTCOMEGEN_"

// Backend names.
const (
	BackendGemini  = "gemini"
	BackendCommand = "command"
)

// Smoke loader names.
const (
	LoaderYaegi    = "yaegi"
	LoaderPackages = "packages"
)

// Configuration represents the outcomegen configuration
type Configuration struct {
	Backend        string   `koanf:"backend" validate:"required,oneof=gemini command"`
	GeminiAPIKey   string   `koanf:"gemini_api_key"`
	GeminiModel    string   `koanf:"gemini_model" validate:"required"`
	AgentCmd       string   `koanf:"agent_cmd"`
	AgentArgs      []string `koanf:"agent_args"`
	CustomAgentCmd string   `koanf:"custom_agent_cmd"`
	BackendTimeout int      `koanf:"backend_timeout" validate:"min=1,max=3600"`

	SynthMaxRetries int `koanf:"synth_max_retries" validate:"min=1,max=10"`
	PlanMaxRetries  int `koanf:"plan_max_retries" validate:"min=1,max=10"`
	PlanConcurrency int `koanf:"plan_concurrency" validate:"min=1,max=16"`

	LintCmd      string   `koanf:"lint_cmd" validate:"required"`
	LintArgs     []string `koanf:"lint_args"`
	GenerateCmd  string   `koanf:"generate_cmd" validate:"required"`
	GenerateArgs []string `koanf:"generate_args"`
	StageTimeout int      `koanf:"stage_timeout" validate:"min=1,max=3600"`
	SmokeLoader  string   `koanf:"smoke_loader" validate:"required,oneof=yaegi packages"`

	OutputDir  string `koanf:"output_dir" validate:"required"`
	OutputFile string `koanf:"output_file" validate:"required"`

	RetrieveRefDocs  bool   `koanf:"retrieve_refdocs"`
	SearchAPIKey     string `koanf:"search_api_key"`
	SearchURL        string `koanf:"search_url" validate:"required,url"`
	SearchMaxResults int    `koanf:"search_max_results" validate:"min=1,max=20"`

	LogLevel     string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat    string `koanf:"log_format" validate:"required,oneof=json console"`
	ShowProgress bool   `koanf:"show_progress"`
}

// Load loads configuration from global, local, and environment sources
// Priority: Environment variables > Local config > Global config > Defaults
func Load(localConfigPath string) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		k.Set(key, value)
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(homeDir, ".outcomegen", "config.json")
		if _, err := os.Stat(globalPath); err == nil {
			if err := k.Load(file.Provider(globalPath), json.Parser()); err != nil {
				return nil, &apperrors.ConfigurationError{Message: fmt.Sprintf("failed to load global config %s: %v", globalPath, err)}
			}
		}
	}

	if localConfigPath != "" {
		if _, err := os.Stat(localConfigPath); err == nil {
			if err := k.Load(file.Provider(localConfigPath), json.Parser()); err != nil {
				return nil, &apperrors.ConfigurationError{Message: fmt.Sprintf("failed to load local config %s: %v", localConfigPath, err)}
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, &apperrors.ConfigurationError{Message: fmt.Sprintf("failed to read environment: %v", err)}
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &apperrors.ConfigurationError{Message: fmt.Sprintf("failed to unmarshal config: %v", err)}
	}

	// Well-known credential variables fill in when the prefixed ones are unset.
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	if cfg.SearchAPIKey == "" {
		cfg.SearchAPIKey = os.Getenv("TAVILY_API_KEY")
	}

	cfg.OutputDir = expandHomePath(cfg.OutputDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &apperrors.ConfigurationError{Message: fmt.Sprintf("config validation failed: %v", err)}
	}
	if c.CustomAgentCmd != "" && !strings.Contains(c.CustomAgentCmd, "{{PROMPT}}") {
		return &apperrors.ConfigurationError{Key: "custom_agent_cmd", Message: "must contain {{PROMPT}} placeholder"}
	}
	if c.Backend == BackendCommand && c.AgentCmd == "" && c.CustomAgentCmd == "" {
		return &apperrors.ConfigurationError{Key: "agent_cmd", Message: "required when backend is \"command\""}
	}
	return nil
}

// RequireGeminiKey fails when the Gemini credential is absent.
func (c *Configuration) RequireGeminiKey() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return &apperrors.ConfigurationError{Key: "gemini_api_key", Message: "required credential is not set (GEMINI_API_KEY)"}
	}
	return nil
}

// RequireSearchKey fails when the reference-search credential is absent.
func (c *Configuration) RequireSearchKey() error {
	if strings.TrimSpace(c.SearchAPIKey) == "" {
		return &apperrors.ConfigurationError{Key: "search_api_key", Message: "required credential is not set (TAVILY_API_KEY)"}
	}
	return nil
}

// StageTimeoutDuration returns the per-stage subprocess timeout.
func (c *Configuration) StageTimeoutDuration() time.Duration {
	return time.Duration(c.StageTimeout) * time.Second
}

// BackendTimeoutDuration returns the per-call backend timeout.
func (c *Configuration) BackendTimeoutDuration() time.Duration {
	return time.Duration(c.BackendTimeout) * time.Second
}

// OutputPath returns the path of the generated source artifact.
func (c *Configuration) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputFile)
}

// Redacted returns a copy safe for display.
func (c Configuration) Redacted() Configuration {
	c.GeminiAPIKey = redact(c.GeminiAPIKey)
	c.SearchAPIKey = redact(c.SearchAPIKey)
	return c
}

// ToMap returns the configuration keyed by config key names.
func ToMap(c Configuration) map[string]any {
	out := make(map[string]any)
	v := reflect.ValueOf(c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("koanf")
		if key == "" {
			continue
		}
		out[key] = v.Field(i).Interface()
	}
	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// envTransform converts environment variable names to config keys
// Example: OUTCOMEGEN_SYNTH_MAX_RETRIES -> synth_max_retries
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
