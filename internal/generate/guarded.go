package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/logging"
	"github.com/ariel-frischer/outcomegen/internal/retry"
)

// Contract describes the document a guarded call must produce.
type Contract[T any] struct {
	// Name identifies the target in logs and errors, e.g. "schema specification".
	Name   string
	System string
	Schema map[string]any
	// Validate checks a decoded candidate. A non-nil error rejects it and its
	// message is fed back to the backend on the next attempt.
	Validate func(*T) error
}

// Guard bounds a guarded call.
type Guard struct {
	Backend     Backend
	MaxAttempts int
	Logger      *zap.Logger
}

// Guarded asks the backend for a document satisfying the contract, retrying
// with the rejection reason until it validates or the attempt budget runs
// out. Backend failures are returned immediately as BackendError; an
// exhausted budget is a GenerationError. A returned value always passed
// Validate.
func Guarded[T any](ctx context.Context, g Guard, c Contract[T], prompt string) (T, error) {
	var zero T
	logger := logging.OrNop(g.Logger).With(zap.String("target", c.Name), zap.String("backend", g.Backend.Name()))
	budget := retry.NewBudget(c.Name, g.MaxAttempts)

	current := prompt
	for {
		if err := budget.Increment(); err != nil {
			logger.Debug("attempt budget spent", zap.Error(err))
			break
		}
		if err := ctx.Err(); err != nil {
			return zero, &apperrors.BackendError{Backend: g.Backend.Name(), Err: err}
		}
		logger.Debug("requesting candidate", zap.Int("attempt", budget.Count), zap.Int("max_attempts", budget.Max))

		raw, err := g.Backend.Generate(ctx, Request{
			System:     c.System,
			Prompt:     current,
			SchemaName: c.Name,
			Schema:     c.Schema,
		})
		if err != nil {
			logger.Warn("backend call failed", zap.Int("attempt", budget.Count), zap.Error(err))
			return zero, &apperrors.BackendError{Backend: g.Backend.Name(), Err: err}
		}

		candidate, reason := check(raw, c)
		if reason == "" {
			logger.Debug("candidate accepted", zap.Int("attempt", budget.Count))
			return candidate, nil
		}

		budget.Reject(reason)
		logger.Info("candidate rejected", zap.Int("attempt", budget.Count), zap.String("reason", reason))
		current = RetryPrompt(prompt, reason)
	}

	return zero, &apperrors.GenerationError{
		Target:   c.Name,
		Attempts: budget.Count,
		Reason:   budget.LastReason(),
	}
}

func check[T any](raw string, c Contract[T]) (T, string) {
	var v T
	body := ExtractJSON(raw)
	if body == "" {
		return v, "response contained no JSON document"
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Sprintf("response is not a valid %s document: %v", c.Name, err)
	}
	if c.Validate != nil {
		if err := c.Validate(&v); err != nil {
			return v, err.Error()
		}
	}
	return v, ""
}

// RetryPrompt appends the rejection reason to the original prompt.
func RetryPrompt(prompt, reason string) string {
	return prompt + "\n\nYour previous response was rejected: " + reason +
		"\nReturn a corrected JSON document that fixes every problem listed."
}

// ExtractJSON returns the JSON document in raw, unwrapping a Markdown code
// fence if the backend added one. Leading prose before the first brace is
// dropped. A response that is already valid JSON is only compacted, so fence
// markers inside string values survive.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		if json.Valid([]byte(s)) {
			return compactJSON(s)
		}
	}
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	s = s[start:]
	// Trim trailing prose after the last closing bracket.
	end := strings.LastIndexAny(s, "}]")
	if end < 0 {
		return ""
	}
	s = s[:end+1]
	if !json.Valid([]byte(s)) {
		// Leave it to the decoder to report a precise error.
		return s
	}
	return compactJSON(s)
}

func compactJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
