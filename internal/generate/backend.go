// Package generate talks to generative backends and enforces output
// contracts on their responses with a bounded retry loop.
package generate

import (
	"context"
)

// Request is one generation call.
type Request struct {
	// System carries standing instructions, sent separately when the
	// backend supports it.
	System string
	Prompt string
	// SchemaName and Schema describe the expected JSON document. Backends
	// with native schema enforcement use them; others embed them in the
	// prompt.
	SchemaName string
	Schema     map[string]any
}

// Backend produces raw text for a request. Implementations must be safe for
// concurrent use.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, req Request) (string, error)

// Name implements Backend.
func (f BackendFunc) Name() string { return "func" }

// Generate implements Backend.
func (f BackendFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
