// Package codegen drives the external toolchain over a serialized schema:
// lint, generate, then smoke-test the generated source. Stages run strictly
// in order and the first failure ends the run.
package codegen

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/logging"
)

// DefaultStageTimeout bounds each subprocess when Config leaves it zero.
const DefaultStageTimeout = 60 * time.Second

// Stage names.
type Stage string

const (
	StageLint     Stage = "lint"
	StageGenerate Stage = "generate"
	StageSmoke    Stage = "smoke"
)

// Tag is the message prefix for the stage.
func (s Stage) Tag() string {
	switch s {
	case StageLint:
		return "[LINT]"
	case StageGenerate:
		return "[CODEGEN]"
	case StageSmoke:
		return "[IMPORT]"
	default:
		return "[" + strings.ToUpper(string(s)) + "]"
	}
}

// Config names the toolchain binaries. The schema path is appended to each
// argument list.
type Config struct {
	LintCmd      string
	LintArgs     []string
	GenerateCmd  string
	GenerateArgs []string
	StageTimeout time.Duration
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage    Stage
	Success  bool
	Message  string
	Duration time.Duration
}

// Report aggregates a run.
type Report struct {
	Success bool
	// Message joins stage messages up to and including the first failure.
	Message  string
	Stages   []StageResult
	Artifact *Artifact
}

func (r *Report) add(res StageResult) {
	r.Stages = append(r.Stages, res)
	msgs := make([]string, len(r.Stages))
	for i, s := range r.Stages {
		msgs[i] = s.Message
	}
	r.Message = strings.Join(msgs, "\n")
}

// Orchestrator runs the three stages.
type Orchestrator struct {
	cfg      Config
	runner   Runner
	loader   Loader
	lookPath func(string) (string, error)
	logger   *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrNop(l) }
}

// WithLookPath replaces exec.LookPath for the toolchain preflight.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(o *Orchestrator) { o.lookPath = fn }
}

// New creates an Orchestrator. A nil runner uses ExecRunner and a nil loader
// uses YaegiLoader.
func New(cfg Config, runner Runner, loader Loader, opts ...Option) *Orchestrator {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if loader == nil {
		loader = YaegiLoader{}
	}
	o := &Orchestrator{
		cfg:      cfg,
		runner:   runner,
		loader:   loader,
		lookPath: exec.LookPath,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Preflight checks that both toolchain binaries resolve.
func (o *Orchestrator) Preflight() error {
	for _, tool := range []string{o.cfg.LintCmd, o.cfg.GenerateCmd} {
		if _, err := o.lookPath(tool); err != nil {
			return &apperrors.ToolchainMissingError{Tool: tool}
		}
	}
	return nil
}

// Run lints schemaPath, generates source into outputPath and smoke-tests it.
// The report is always returned; the error is the typed failure of the
// stage that stopped the run.
func (o *Orchestrator) Run(ctx context.Context, schemaPath, outputPath string) (*Report, error) {
	report := &Report{}
	if err := o.Preflight(); err != nil {
		report.Message = err.Error()
		return report, err
	}

	if err := o.timed(report, StageLint, func() (string, error) { return o.lint(ctx, schemaPath) }); err != nil {
		return report, err
	}

	var artifact Artifact
	if err := o.timed(report, StageGenerate, func() (string, error) {
		var msg string
		var err error
		artifact, msg, err = o.generate(ctx, schemaPath, outputPath)
		return msg, err
	}); err != nil {
		return report, err
	}
	report.Artifact = &artifact

	if err := o.timed(report, StageSmoke, func() (string, error) { return o.smoke(ctx, artifact) }); err != nil {
		return report, err
	}

	report.Success = true
	return report, nil
}

func (o *Orchestrator) timed(report *Report, stage Stage, fn func() (string, error)) error {
	start := time.Now()
	msg, err := fn()
	res := StageResult{Stage: stage, Success: err == nil, Message: msg, Duration: time.Since(start)}
	report.add(res)

	fields := []zap.Field{zap.String("stage", string(stage)), zap.Duration("duration", res.Duration)}
	if err != nil {
		o.logger.Warn("codegen stage failed", append(fields, zap.Error(err))...)
	} else {
		o.logger.Info("codegen stage passed", fields...)
	}
	return err
}

func (o *Orchestrator) lint(ctx context.Context, schemaPath string) (string, error) {
	cmd := Command{Name: o.cfg.LintCmd, Args: withPath(o.cfg.LintArgs, schemaPath), Timeout: o.cfg.StageTimeout}
	res, err := o.runner.Run(ctx, cmd)
	if failure := o.toolchainFailure(StageLint, cmd, res, err); failure != nil {
		return fmt.Sprintf("%s Schema lint failed: %v", StageLint.Tag(), failure), failure
	}

	output := res.Combined()
	switch {
	case res.ExitCode == 0:
		return StageLint.Tag() + " Schema lint passed", nil
	case res.ExitCode == 1 && strings.Contains(strings.ToLower(output), "warning"):
		return StageLint.Tag() + " Schema lint passed with warnings (acceptable for MVP)", nil
	default:
		return fmt.Sprintf("%s Schema lint failed (exit %d):\n%s", StageLint.Tag(), res.ExitCode, output),
			&apperrors.ToolchainError{Stage: string(StageLint), Command: cmd.String(), Code: res.ExitCode, Output: output}
	}
}

func (o *Orchestrator) generate(ctx context.Context, schemaPath, outputPath string) (Artifact, string, error) {
	cmd := Command{Name: o.cfg.GenerateCmd, Args: withPath(o.cfg.GenerateArgs, schemaPath), Timeout: o.cfg.StageTimeout}
	res, err := o.runner.Run(ctx, cmd)
	if failure := o.toolchainFailure(StageGenerate, cmd, res, err); failure != nil {
		return Artifact{}, fmt.Sprintf("%s Code generation failed: %v", StageGenerate.Tag(), failure), failure
	}
	if res.ExitCode != 0 {
		output := res.Combined()
		return Artifact{}, fmt.Sprintf("%s Code generation failed (exit %d):\n%s", StageGenerate.Tag(), res.ExitCode, output),
			&apperrors.ToolchainError{Stage: string(StageGenerate), Command: cmd.String(), Code: res.ExitCode, Output: output}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return Artifact{}, fmt.Sprintf("%s Code generation failed: %v", StageGenerate.Tag(), err), fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(res.Stdout), 0o644); err != nil {
		return Artifact{}, fmt.Sprintf("%s Code generation failed: %v", StageGenerate.Tag(), err), fmt.Errorf("writing generated source: %w", err)
	}

	return NewArtifact(outputPath), fmt.Sprintf("%s Generated %s", StageGenerate.Tag(), outputPath), nil
}

func (o *Orchestrator) smoke(ctx context.Context, a Artifact) (string, error) {
	if err := o.loader.Load(ctx, a); err != nil {
		return fmt.Sprintf("%s Import failed:\n%v", StageSmoke.Tag(), err),
			&apperrors.SmokeTestError{Artifact: a.Path, Err: err}
	}
	return fmt.Sprintf("%s Successfully imported %s", StageSmoke.Tag(), a.Name), nil
}

// toolchainFailure maps start failures and timeouts to ToolchainError.
func (o *Orchestrator) toolchainFailure(stage Stage, cmd Command, res Result, err error) error {
	switch {
	case err != nil:
		return &apperrors.ToolchainError{Stage: string(stage), Command: cmd.String(), Code: -1, Output: err.Error()}
	case res.TimedOut:
		return &apperrors.ToolchainError{Stage: string(stage), Command: cmd.String(), Code: -1, Output: res.Combined(), TimedOut: true, Timeout: cmd.Timeout}
	default:
		return nil
	}
}

func withPath(args []string, path string) []string {
	out := make([]string, 0, len(args)+1)
	out = append(out, args...)
	return append(out, path)
}
