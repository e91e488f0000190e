package lifecycle

import (
	"time"

	"go.uber.org/zap"
)

// NotificationHandler receives step completion events.
//
// Implementations must tolerate concurrent calls; the wrapper functions
// recover from handler panics.
type NotificationHandler interface {
	// OnStepComplete is called when a pipeline step finishes.
	//   - name: the step name (e.g., "synthesize", "plan", "codegen")
	//   - success: true if the step completed without error
	//   - duration: how long the step took
	OnStepComplete(name string, success bool, duration time.Duration)
}

// LogHandler logs each completed step.
type LogHandler struct {
	Logger *zap.Logger
}

// OnStepComplete implements NotificationHandler.
func (h LogHandler) OnStepComplete(name string, success bool, duration time.Duration) {
	if h.Logger == nil {
		return
	}
	fields := []zap.Field{zap.String("step", name), zap.Duration("duration", duration)}
	if success {
		h.Logger.Info("step completed", fields...)
	} else {
		h.Logger.Warn("step failed", fields...)
	}
}

// Handlers fans an event out to several handlers in order.
type Handlers []NotificationHandler

// OnStepComplete implements NotificationHandler.
func (hs Handlers) OnStepComplete(name string, success bool, duration time.Duration) {
	for _, h := range hs {
		notifyStepComplete(h, name, success, duration)
	}
}

// Timing records step durations in completion order.
type Timing struct {
	Steps []StepTiming
}

// StepTiming is one recorded step.
type StepTiming struct {
	Name     string
	Success  bool
	Duration time.Duration
}

// OnStepComplete implements NotificationHandler.
func (t *Timing) OnStepComplete(name string, success bool, duration time.Duration) {
	t.Steps = append(t.Steps, StepTiming{Name: name, Success: success, Duration: duration})
}

// Total returns the sum of recorded durations.
func (t *Timing) Total() time.Duration {
	var total time.Duration
	for _, s := range t.Steps {
		total += s.Duration
	}
	return total
}
