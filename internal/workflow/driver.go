package workflow

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariel-frischer/outcomegen/internal/codegen"
	"github.com/ariel-frischer/outcomegen/internal/config"
	"github.com/ariel-frischer/outcomegen/internal/lifecycle"
	"github.com/ariel-frischer/outcomegen/internal/linkml"
	"github.com/ariel-frischer/outcomegen/internal/logging"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/planner"
	"github.com/ariel-frischer/outcomegen/internal/progress"
	"github.com/ariel-frischer/outcomegen/internal/refdocs"
	"github.com/ariel-frischer/outcomegen/internal/schema"
	"github.com/ariel-frischer/outcomegen/internal/synth"
)

// Step names, in execution order.
const (
	StepLoad       = "load"
	StepRefDocs    = "refdocs"
	StepSynthesize = "synthesize"
	StepSerialize  = "serialize"
	StepPlan       = "plan"
	StepWrite      = "write"
	StepCodegen    = "codegen"
)

var steps = []string{StepLoad, StepRefDocs, StepSynthesize, StepSerialize, StepPlan, StepWrite, StepCodegen}

// Artifact file names written under the output directory.
const (
	SchemaYAMLFile = "schema.yaml"
	CoreYAMLFile   = linkml.CoreImport + ".yaml"
	SchemaJSONFile = "schema.json"
	PlansJSONFile  = "plans.json"
)

// Artifacts lists the files a run wrote.
type Artifacts struct {
	SchemaYAML string
	CoreYAML   string
	SchemaJSON string
	PlansJSON  string
	Source     string
}

// Result is everything a run produced. On failure it holds whatever the
// completed steps produced.
type Result struct {
	RunID       string
	Outcome     *outcome.Specification
	RefDocs     refdocs.Results
	Schema      *schema.Specification
	SchemaYAML  []byte
	Diagnostics []linkml.Diagnostic
	Plans       []planner.Plan
	Codegen     *codegen.Report
	Artifacts   Artifacts
	Steps       []lifecycle.StepTiming
}

// Driver runs the pipeline end to end.
type Driver struct {
	cfg         *config.Configuration
	deps        Dependencies
	synthesizer *synth.Synthesizer
	planner     *planner.Planner
	logger      *zap.Logger
	display     *progress.Display
	handler     lifecycle.NotificationHandler
	skipCodegen bool
	runID       string
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) DriverOption {
	return func(d *Driver) { d.logger = logging.OrNop(l) }
}

// WithDisplay shows step progress on the given display.
func WithDisplay(p *progress.Display) DriverOption {
	return func(d *Driver) { d.display = p }
}

// WithHandler adds a step completion handler.
func WithHandler(h lifecycle.NotificationHandler) DriverOption {
	return func(d *Driver) { d.handler = h }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) DriverOption {
	return func(d *Driver) { d.runID = id }
}

// WithoutCodegen stops the run after the artifacts are written.
func WithoutCodegen() DriverOption {
	return func(d *Driver) { d.skipCodegen = true }
}

// NewDriver creates a Driver. Missing dependencies are built from cfg; the
// retriever only when cfg.RetrieveRefDocs is set.
func NewDriver(cfg *config.Configuration, deps Dependencies, opts ...DriverOption) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow: configuration is required")
	}
	d := &Driver{cfg: cfg, logger: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}

	if deps.Backend == nil {
		b, err := NewBackend(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		deps.Backend = b
	}
	if deps.Retriever == nil && cfg.RetrieveRefDocs {
		r, err := NewRetriever(cfg, d.logger)
		if err != nil {
			return nil, err
		}
		deps.Retriever = r
	}
	if deps.Codegen == nil && !d.skipCodegen {
		o, err := NewCodegen(cfg, d.logger)
		if err != nil {
			return nil, err
		}
		deps.Codegen = o
	}
	d.deps = deps

	var err error
	d.synthesizer, err = synth.New(deps.Backend,
		synth.WithMaxAttempts(cfg.SynthMaxRetries),
		synth.WithLogger(d.logger))
	if err != nil {
		return nil, err
	}
	d.planner, err = planner.New(deps.Backend,
		planner.WithMaxAttempts(cfg.PlanMaxRetries),
		planner.WithConcurrency(cfg.PlanConcurrency),
		planner.WithLogger(d.logger))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Run executes every step for the outcome document at outcomePath. The first
// failing step aborts the run; its error is wrapped with the step name.
func (d *Driver) Run(ctx context.Context, outcomePath string) (*Result, error) {
	res := &Result{RunID: d.runID}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	logger := d.logger.With(zap.String("run_id", res.RunID))
	timing := &lifecycle.Timing{}
	handlers := lifecycle.Handlers{lifecycle.LogHandler{Logger: logger}, timing}
	if d.handler != nil {
		handlers = append(handlers, d.handler)
	}
	defer func() { res.Steps = timing.Steps }()
	defer d.display.StopSpinner()

	logger.Info("pipeline started", zap.String("outcome", outcomePath), zap.String("backend", d.deps.Backend.Name()))

	run := func(name string, fn func(context.Context) error) error {
		info := d.stepInfo(name)
		_ = d.display.StartStep(info)
		start := time.Now()
		if err := lifecycle.RunWithContext(ctx, handlers, name, fn); err != nil {
			d.display.FailStep(info, err)
			logger.Error("pipeline aborted", zap.String("step", name), zap.Error(err))
			return fmt.Errorf("%s: %w", name, err)
		}
		d.display.CompleteStep(info, time.Since(start))
		return nil
	}

	if err := run(StepLoad, func(context.Context) error {
		spec, err := outcome.Load(outcomePath)
		res.Outcome = spec
		return err
	}); err != nil {
		return res, err
	}

	if reason := d.refDocsSkipReason(res.Outcome); reason != "" {
		d.display.SkipStep(d.stepInfo(StepRefDocs), reason)
	} else if err := run(StepRefDocs, func(ctx context.Context) error {
		res.RefDocs = d.deps.Retriever.Retrieve(ctx, res.Outcome.OntologyHints)
		for _, prefix := range res.RefDocs.Failed() {
			logger.Warn("reference retrieval failed",
				zap.String("prefix", prefix), zap.Error(res.RefDocs[prefix].Err))
		}
		return nil
	}); err != nil {
		return res, err
	}

	if err := run(StepSynthesize, func(ctx context.Context) error {
		s, err := d.synthesizer.Synthesize(ctx, res.Outcome, res.RefDocs)
		res.Schema = s
		return err
	}); err != nil {
		return res, err
	}

	if err := run(StepSerialize, func(context.Context) error {
		res.SchemaYAML, res.Diagnostics = linkml.SerializeWithHints(res.Schema, res.Outcome.OntologyHints)
		for _, diag := range res.Diagnostics {
			logger.Warn("serializer diagnostic", zap.String("diagnostic", diag.String()))
		}
		return nil
	}); err != nil {
		return res, err
	}

	if err := run(StepPlan, func(ctx context.Context) error {
		plans, err := d.planner.Plan(ctx, res.Outcome, res.Schema)
		res.Plans = plans
		return err
	}); err != nil {
		return res, err
	}

	if err := run(StepWrite, func(context.Context) error {
		return d.writeArtifacts(res)
	}); err != nil {
		return res, err
	}

	if d.skipCodegen {
		d.display.SkipStep(d.stepInfo(StepCodegen), "disabled")
		logger.Info("pipeline finished without codegen")
		return res, nil
	}

	if err := run(StepCodegen, func(ctx context.Context) error {
		report, err := d.deps.Codegen.Run(ctx, res.Artifacts.SchemaYAML, d.cfg.OutputPath())
		res.Codegen = report
		if report != nil && report.Artifact != nil {
			res.Artifacts.Source = report.Artifact.Path
		}
		return err
	}); err != nil {
		return res, err
	}

	logger.Info("pipeline finished", zap.Duration("duration", timing.Total()))
	return res, nil
}

func (d *Driver) refDocsSkipReason(spec *outcome.Specification) string {
	switch {
	case d.deps.Retriever == nil:
		return "disabled"
	case len(spec.OntologyHints) == 0:
		return "no ontology hints"
	default:
		return ""
	}
}

func (d *Driver) stepInfo(name string) progress.StepInfo {
	number := 0
	for i, s := range steps {
		if s == name {
			number = i + 1
		}
	}
	return progress.StepInfo{Name: name, Number: number, TotalSteps: len(steps)}
}

// writeArtifacts writes schema.yaml, core.yaml, schema.json and plans.json
// under the output directory.
func (d *Driver) writeArtifacts(res *Result) error {
	dir := d.cfg.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var schemaJSON, plansJSON bytes.Buffer
	if err := res.Schema.WriteJSON(&schemaJSON); err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	if err := planner.WriteJSON(&plansJSON, res.Plans); err != nil {
		return err
	}

	files := []struct {
		path *string
		name string
		data []byte
	}{
		{&res.Artifacts.SchemaYAML, SchemaYAMLFile, res.SchemaYAML},
		{&res.Artifacts.CoreYAML, CoreYAMLFile, linkml.CoreSchema()},
		{&res.Artifacts.SchemaJSON, SchemaJSONFile, schemaJSON.Bytes()},
		{&res.Artifacts.PlansJSON, PlansJSONFile, plansJSON.Bytes()},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		*f.path = path
	}
	return nil
}
