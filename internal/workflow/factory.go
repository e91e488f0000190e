package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ariel-frischer/outcomegen/internal/codegen"
	"github.com/ariel-frischer/outcomegen/internal/config"
	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/generate"
	"github.com/ariel-frischer/outcomegen/internal/refdocs"
)

// NewBackend builds the generative backend named by cfg.Backend.
func NewBackend(ctx context.Context, cfg *config.Configuration) (generate.Backend, error) {
	switch cfg.Backend {
	case config.BackendCommand:
		return &generate.CommandBackend{
			Cmd:       cfg.AgentCmd,
			Args:      cfg.AgentArgs,
			CustomCmd: cfg.CustomAgentCmd,
			Timeout:   cfg.BackendTimeoutDuration(),
		}, nil
	case config.BackendGemini, "":
		if err := cfg.RequireGeminiKey(); err != nil {
			return nil, err
		}
		g, err := generate.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return withTimeout(g, cfg.BackendTimeoutDuration()), nil
	default:
		return nil, &apperrors.ConfigurationError{Key: "backend", Message: "unknown backend " + cfg.Backend}
	}
}

// NewRetriever builds the reference-documentation retriever.
func NewRetriever(cfg *config.Configuration, logger *zap.Logger) (*refdocs.Retriever, error) {
	return refdocs.New(refdocs.Config{
		APIKey:     cfg.SearchAPIKey,
		SearchURL:  cfg.SearchURL,
		MaxResults: cfg.SearchMaxResults,
	}, refdocs.WithLogger(logger))
}

// NewCodegen builds the codegen orchestrator with the configured smoke loader.
func NewCodegen(cfg *config.Configuration, logger *zap.Logger) (*codegen.Orchestrator, error) {
	loader, err := codegen.NewLoader(cfg.SmokeLoader)
	if err != nil {
		return nil, &apperrors.ConfigurationError{Key: "smoke_loader", Message: err.Error()}
	}
	return codegen.New(codegen.Config{
		LintCmd:      cfg.LintCmd,
		LintArgs:     cfg.LintArgs,
		GenerateCmd:  cfg.GenerateCmd,
		GenerateArgs: cfg.GenerateArgs,
		StageTimeout: cfg.StageTimeoutDuration(),
	}, codegen.ExecRunner{}, loader, codegen.WithLogger(logger)), nil
}

// timeoutBackend bounds every Generate call.
type timeoutBackend struct {
	generate.Backend
	timeout time.Duration
}

func withTimeout(b generate.Backend, d time.Duration) generate.Backend {
	if d <= 0 {
		return b
	}
	return timeoutBackend{Backend: b, timeout: d}
}

func (t timeoutBackend) Generate(ctx context.Context, req generate.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Backend.Generate(ctx, req)
}
