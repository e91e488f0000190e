package generate_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/generate"
	"github.com/ariel-frischer/outcomegen/internal/testutil"
)

type greeting struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func greetingContract() generate.Contract[greeting] {
	return generate.Contract[greeting]{
		Name: "greeting",
		Validate: func(g *greeting) error {
			if g.Name == "" {
				return errors.New("name is required")
			}
			if g.Count > 3 {
				return fmt.Errorf("count %d exceeds 3", g.Count)
			}
			return nil
		},
	}
}

func TestGuarded_FirstCandidateAccepted(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).
		WithResponse(`{"name": "ada", "count": 1}`).
		Build()

	got, err := generate.Guarded(context.Background(),
		generate.Guard{Backend: backend, MaxAttempts: 3}, greetingContract(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, greeting{Name: "ada", Count: 1}, got)
	backend.AssertCallCount(t, 1)
}

func TestGuarded_RetriesWithReason(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).
		WithResponse(`{"name": "ada", "count": 9}`).
		ThenResponse("```json\n{\"name\": \"ada\", \"count\": 2}\n```").
		Build()

	got, err := generate.Guarded(context.Background(),
		generate.Guard{Backend: backend, MaxAttempts: 3}, greetingContract(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	calls := backend.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "say hi", calls[0].Request.Prompt)
	assert.Contains(t, calls[1].Request.Prompt, "say hi")
	assert.Contains(t, calls[1].Request.Prompt, "count 9 exceeds 3")
	assert.Equal(t, "greeting", calls[1].Request.SchemaName)
}

func TestGuarded_BudgetExhausted(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		maxAttempts int
		response    string
		wantCalls   int
		wantReason  string
	}{
		"validation keeps failing": {
			maxAttempts: 3,
			response:    `{"name": ""}`,
			wantCalls:   3,
			wantReason:  "name is required",
		},
		"never json": {
			maxAttempts: 2,
			response:    "I cannot help with that",
			wantCalls:   2,
			wantReason:  "no JSON document",
		},
		"unknown field": {
			maxAttempts: 1,
			response:    `{"name": "ada", "extra": true}`,
			wantCalls:   1,
			wantReason:  "unknown field",
		},
		"zero budget still tries once": {
			maxAttempts: 0,
			response:    `{"name": ""}`,
			wantCalls:   1,
			wantReason:  "name is required",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			response := tt.response
			backend := testutil.NewMockBackendBuilder(t).
				Always(func(generate.Request) (string, error) { return response, nil }).
				Build()

			_, err := generate.Guarded(context.Background(),
				generate.Guard{Backend: backend, MaxAttempts: tt.maxAttempts}, greetingContract(), "say hi")

			var genErr *apperrors.GenerationError
			require.True(t, errors.As(err, &genErr), "got %T: %v", err, err)
			assert.Equal(t, tt.wantCalls, genErr.Attempts)
			assert.Contains(t, genErr.Reason, tt.wantReason)
			assert.Equal(t, apperrors.ExitRetryExhausted, apperrors.ExitCodeOf(err))
			backend.AssertCallCount(t, tt.wantCalls)
		})
	}
}

func TestGuarded_BackendErrorNotRetried(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).
		WithName("gemini").
		WithError(errors.New("quota exceeded")).
		Build()

	_, err := generate.Guarded(context.Background(),
		generate.Guard{Backend: backend, MaxAttempts: 3}, greetingContract(), "say hi")

	var backendErr *apperrors.BackendError
	require.True(t, errors.As(err, &backendErr), "got %T: %v", err, err)
	assert.Equal(t, "gemini", backendErr.Backend)
	assert.Contains(t, err.Error(), "quota exceeded")
	backend.AssertCallCount(t, 1)
}

func TestGuarded_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	backend := testutil.NewMockBackendBuilder(t).Build()

	_, err := generate.Guarded(ctx, generate.Guard{Backend: backend, MaxAttempts: 2}, greetingContract(), "x")
	require.ErrorIs(t, err, context.Canceled)
	backend.AssertCallCount(t, 0)
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		raw  string
		want string
	}{
		"bare object":       {raw: ` {"a": 1} `, want: `{"a":1}`},
		"fenced json":       {raw: "```json\n{\"a\": 1}\n```", want: `{"a":1}`},
		"fence no lang":     {raw: "```\n[1, 2]\n```", want: `[1,2]`},
		"leading prose":     {raw: "Here you go:\n{\"a\": {\"b\": 2}}\nThanks!", want: `{"a":{"b":2}}`},
		"no json":           {raw: "nothing here", want: ""},
		"broken left as is": {raw: `{"a": }`, want: `{"a": }`},
		"fence inside string value": {
			raw:  `{"schema_name":"s","description":"Wrap code in ` + "```" + ` fences","classes":[]}`,
			want: `{"schema_name":"s","description":"Wrap code in ` + "```" + ` fences","classes":[]}`,
		},
		"bare scalar is not a document": {raw: `"text"`, want: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, generate.ExtractJSON(tt.raw))
		})
	}
}

func TestRetryPrompt(t *testing.T) {
	t.Parallel()

	p := generate.RetryPrompt("original", "classes has 13 entries")
	assert.True(t, strings.HasPrefix(p, "original\n\n"))
	assert.Contains(t, p, "rejected: classes has 13 entries")
}
