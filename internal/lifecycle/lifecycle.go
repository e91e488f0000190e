// Package lifecycle wraps pipeline steps with timing and completion
// notification.
//
// The package is intentionally minimal: no event bus and no goroutines. Each
// wrapper captures the start time, runs the function, computes the duration
// and notifies the handler.
package lifecycle

import (
	"context"
	"time"
)

// Run wraps step execution with timing and notification dispatch.
//
// If handler is nil, fn is still executed but no notification is sent.
// Handler panics are recovered so step completion is not affected.
// The original error from fn is always returned unchanged.
func Run(handler NotificationHandler, name string, fn func() error) error {
	start := time.Now()
	fnErr := fn()
	notifyStepComplete(handler, name, fnErr == nil, time.Since(start))
	return fnErr
}

// RunWithContext wraps context-aware step execution.
// If the context is already cancelled, returns its error immediately
// without executing fn. Otherwise behaves like Run.
//
// The notification is sent regardless of whether fn was executed or cancelled.
func RunWithContext(ctx context.Context, handler NotificationHandler, name string, fn func(context.Context) error) error {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		notifyStepComplete(handler, name, false, time.Since(start))
		return err
	}

	fnErr := fn(ctx)
	notifyStepComplete(handler, name, fnErr == nil, time.Since(start))
	return fnErr
}

// notifyStepComplete safely calls OnStepComplete with panic recovery.
func notifyStepComplete(handler NotificationHandler, name string, success bool, duration time.Duration) {
	if handler == nil {
		return
	}
	defer func() { _ = recover() }()
	handler.OnStepComplete(name, success, duration)
}
