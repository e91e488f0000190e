package progress_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/outcomegen/internal/progress"
)

var plain = progress.TerminalCapabilities{}

func TestDisplay_NonTTYLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	d := progress.NewDisplayTo(&buf, plain)
	step := progress.StepInfo{Name: "synthesize", Number: 3, TotalSteps: 7, Detail: "attempt 2/3"}

	require.NoError(t, d.StartStep(step))
	d.CompleteStep(step, 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "[3/7] Running Synthesize (attempt 2/3)")
	assert.Contains(t, out, "[OK] [3/7] Synthesize complete (1.5s)")
}

func TestDisplay_FailAndSkip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	d := progress.NewDisplayTo(&buf, plain)

	d.FailStep(progress.StepInfo{Name: "codegen", Number: 7, TotalSteps: 7}, errors.New("[LINT] Schema lint failed (exit 2)"))
	d.SkipStep(progress.StepInfo{Name: "refdocs", Number: 2, TotalSteps: 7}, "disabled")

	out := buf.String()
	assert.Contains(t, out, "[FAIL] [7/7] Codegen failed: [LINT] Schema lint failed (exit 2)")
	assert.Contains(t, out, "[SKIP] [2/7] Refdocs skipped: disabled")
}

func TestDisplay_InvalidStep(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	d := progress.NewDisplayTo(&buf, plain)
	assert.Error(t, d.StartStep(progress.StepInfo{Name: "load"}))
	assert.Empty(t, buf.String())
}

func TestDisplay_TTYSpinner(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	d := progress.NewDisplayTo(&buf, progress.TerminalCapabilities{IsTTY: true, SupportsUnicode: true})
	step := progress.StepInfo{Name: "plan", Number: 5, TotalSteps: 7}

	require.NoError(t, d.StartStep(step))
	d.CompleteStep(step, 20*time.Millisecond)
	assert.Contains(t, buf.String(), "✓ [5/7] Plan complete")

	assert.NotPanics(t, d.StopSpinner)
}

func TestDisplay_NilIsNoop(t *testing.T) {
	t.Parallel()

	var d *progress.Display
	step := progress.StepInfo{Name: "load", Number: 1, TotalSteps: 1}
	assert.NoError(t, d.StartStep(step))
	assert.NotPanics(t, func() {
		d.CompleteStep(step, time.Second)
		d.FailStep(step, errors.New("x"))
		d.SkipStep(step, "y")
		d.StopSpinner()
	})
}
