// Package synth turns an outcome specification into a validated schema
// specification through a guarded generation call.
package synth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ariel-frischer/outcomegen/internal/generate"
	"github.com/ariel-frischer/outcomegen/internal/logging"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/refdocs"
	"github.com/ariel-frischer/outcomegen/internal/schema"
)

// DefaultMaxAttempts is the synthesis retry budget.
const DefaultMaxAttempts = 3

// Synthesizer produces schema specifications.
type Synthesizer struct {
	backend     generate.Backend
	maxAttempts int
	logger      *zap.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithMaxAttempts overrides the retry budget.
func WithMaxAttempts(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) { s.logger = logging.OrNop(l) }
}

// New creates a Synthesizer.
func New(backend generate.Backend, opts ...Option) (*Synthesizer, error) {
	if backend == nil {
		return nil, errors.New("synth: backend is required")
	}
	s := &Synthesizer{backend: backend, maxAttempts: DefaultMaxAttempts, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Synthesize returns a schema that passed validation within the outcome's
// limits, or a BackendError or GenerationError. It never returns a partial
// schema.
func (s *Synthesizer) Synthesize(ctx context.Context, spec *outcome.Specification, refs refdocs.Results) (*schema.Specification, error) {
	prompt, err := BuildPrompt(spec, refs)
	if err != nil {
		return nil, err
	}

	limits := schema.LimitsFor(spec.Constraints)
	contract := generate.Contract[schema.Specification]{
		Name:   "schema specification",
		System: SystemPrompt,
		Schema: schema.JSONSchema(),
		Validate: func(candidate *schema.Specification) error {
			return candidate.ValidateWithin(limits)
		},
	}

	result, err := generate.Guarded(ctx, generate.Guard{
		Backend:     s.backend,
		MaxAttempts: s.maxAttempts,
		Logger:      s.logger,
	}, contract, prompt)
	if err != nil {
		return nil, err
	}

	result.ApplyDefaults()
	s.logger.Info("schema synthesized",
		zap.String("schema_name", result.SchemaName),
		zap.Int("classes", len(result.Classes)),
		zap.Int("associations", len(result.Associations)))
	return &result, nil
}
