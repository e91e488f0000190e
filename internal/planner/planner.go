package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariel-frischer/outcomegen/internal/generate"
	"github.com/ariel-frischer/outcomegen/internal/logging"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/schema"
)

// DefaultMaxAttempts is the per-question retry budget.
const DefaultMaxAttempts = 2

const systemPrompt = `You map business questions onto an existing schema. Use only the class
and association names you are given. You respond with JSON only.`

// Planner produces one Plan per question.
type Planner struct {
	backend     generate.Backend
	maxAttempts int
	concurrency int
	logger      *zap.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithMaxAttempts overrides the per-question retry budget.
func WithMaxAttempts(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithConcurrency plans up to n questions at once. The first failure
// cancels the rest.
func WithConcurrency(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) { p.logger = logging.OrNop(l) }
}

// New creates a Planner.
func New(backend generate.Backend, opts ...Option) (*Planner, error) {
	if backend == nil {
		return nil, errors.New("planner: backend is required")
	}
	p := &Planner{backend: backend, maxAttempts: DefaultMaxAttempts, concurrency: 1, logger: logging.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Plan returns plans[i] for spec.Questions[i]. Any question failing its
// budget fails the whole call.
func (p *Planner) Plan(ctx context.Context, spec *outcome.Specification, s *schema.Specification) ([]Plan, error) {
	plans := make([]Plan, len(spec.Questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, question := range spec.Questions {
		g.Go(func() error {
			plan, err := p.planOne(gctx, question, s)
			if err != nil {
				return fmt.Errorf("planning question %d: %w", i+1, err)
			}
			plans[i] = plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

func (p *Planner) planOne(ctx context.Context, question string, s *schema.Specification) (Plan, error) {
	contract := generate.Contract[Plan]{
		Name:   "evidence query plan",
		System: systemPrompt,
		Schema: JSONSchema(),
		Validate: func(candidate *Plan) error {
			return candidate.ValidateAgainst(s)
		},
	}

	plan, err := generate.Guarded(ctx, generate.Guard{
		Backend:     p.backend,
		MaxAttempts: p.maxAttempts,
		Logger:      p.logger.With(zap.String("question", question)),
	}, contract, BuildPrompt(question, s))
	if err != nil {
		return Plan{}, err
	}

	plan.Question = question
	plan.normalize()
	return plan, nil
}

// BuildPrompt renders the planning prompt for one question.
func BuildPrompt(question string, s *schema.Specification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Available classes: %s\n", strings.Join(s.ClassNames(), ", "))
	assocs := s.AssociationNames()
	if len(assocs) == 0 {
		b.WriteString("Available associations: (none)\n")
	} else {
		fmt.Fprintf(&b, "Available associations: %s\n", strings.Join(assocs, ", "))
	}
	b.WriteString("\nList the classes (entities) and associations (edges) required to answer the question, ")
	b.WriteString("plus any metadata filters as key/value pairs. Use only the names listed above.\n")
	return b.String()
}
