package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Display renders step progress to a writer (stderr by default).
// A nil *Display is valid and renders nothing.
type Display struct {
	mu           sync.Mutex
	out          io.Writer
	capabilities TerminalCapabilities
	spinner      *spinner.Spinner
	symbols      Symbols
}

// NewDisplay creates a display writing to stderr.
func NewDisplay(caps TerminalCapabilities) *Display {
	return NewDisplayTo(os.Stderr, caps)
}

// NewDisplayTo creates a display writing to w.
func NewDisplayTo(w io.Writer, caps TerminalCapabilities) *Display {
	return &Display{
		out:          w,
		capabilities: caps,
		symbols:      SelectSymbols(caps),
	}
}

// StartStep begins displaying progress for a step
func (p *Display) StartStep(step StepInfo) error {
	if p == nil {
		return nil
	}
	if err := step.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinnerLocked()

	msg := buildStepMessage(step, "Running")
	if p.capabilities.IsTTY {
		p.spinner = spinner.New(spinner.CharSets[p.symbols.SpinnerSet], 100*time.Millisecond)
		p.spinner.Writer = p.out
		p.spinner.Suffix = " " + msg
		p.spinner.Start()
		return nil
	}
	fmt.Fprintln(p.out, msg)
	return nil
}

// CompleteStep stops the spinner and displays completion status
func (p *Display) CompleteStep(step StepInfo, duration time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinnerLocked()

	mark := checkmark(p.symbols, p.capabilities.SupportsColor)
	fmt.Fprintf(p.out, "%s %s %s complete (%s)\n", mark,
		formatStepCounter(step.Number, step.TotalSteps), capitalize(step.Name), formatDuration(duration))
}

// FailStep stops the spinner and displays failure status
func (p *Display) FailStep(step StepInfo, err error) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinnerLocked()

	mark := failureMark(p.symbols, p.capabilities.SupportsColor)
	fmt.Fprintf(p.out, "%s %s %s failed: %v\n", mark,
		formatStepCounter(step.Number, step.TotalSteps), capitalize(step.Name), err)
}

// SkipStep displays a step that was not run.
func (p *Display) SkipStep(step StepInfo, reason string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinnerLocked()

	mark := skippedMark(p.symbols, p.capabilities.SupportsColor)
	fmt.Fprintf(p.out, "%s %s %s skipped: %s\n", mark,
		formatStepCounter(step.Number, step.TotalSteps), capitalize(step.Name), reason)
}

// StopSpinner stops the spinner without showing completion/failure
func (p *Display) StopSpinner() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinnerLocked()
}

func (p *Display) stopSpinnerLocked() {
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}
