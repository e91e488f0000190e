package planner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/generate"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/planner"
	"github.com/ariel-frischer/outcomegen/internal/schema"
	"github.com/ariel-frischer/outcomegen/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func supplierSchema() *schema.Specification {
	return &schema.Specification{
		SchemaName: "supplier_risk",
		Classes: []schema.Class{
			{Name: "Supplier", Fields: []string{"supplier_id"}},
			{Name: "Part", Fields: []string{"part_number"}},
		},
		Associations: []schema.Association{{Name: "supplies", Subject: "Supplier", Object: "Part"}},
	}
}

func questions(qs ...string) *outcome.Specification {
	return &outcome.Specification{Outcome: "x", Questions: qs}
}

// questionOf recovers the question line from a planning prompt.
func questionOf(prompt string) string {
	line := strings.SplitN(prompt, "\n", 2)[0]
	return strings.TrimPrefix(line, "Question: ")
}

func echoPlan(req generate.Request) (string, error) {
	// The backend answers with a different question text; the planner must
	// overwrite it with the input question.
	return `{"question": "paraphrased: ` + questionOf(req.Prompt) + `", "entities": ["Supplier"], "edges": ["supplies"], "filters": {"region": "EU"}}`, nil
}

func TestPlan_OnePlanPerQuestionInOrder(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		concurrency int
	}{
		"sequential": {concurrency: 1},
		"concurrent": {concurrency: 4},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			backend := testutil.NewMockBackendBuilder(t).Always(echoPlan).Build()
			p, err := planner.New(backend, planner.WithConcurrency(tt.concurrency))
			require.NoError(t, err)

			spec := questions("q one?", "q two?", "q three?", "q four?", "q five?")
			plans, err := p.Plan(context.Background(), spec, supplierSchema())
			require.NoError(t, err)

			require.Len(t, plans, len(spec.Questions))
			for i, plan := range plans {
				assert.Equal(t, spec.Questions[i], plan.Question)
				assert.Equal(t, []string{"Supplier"}, plan.Entities)
				assert.Equal(t, map[string]string{"region": "EU"}, plan.Filters)
			}
			backend.AssertCallCount(t, len(spec.Questions))
		})
	}
}

func TestPlan_UnknownNamesRetried(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).
		WithResponse(`{"question": "q", "entities": ["Warehouse"], "edges": [], "filters": {}}`).
		ThenResponse(`{"question": "q", "entities": ["Part"], "edges": [], "filters": {}}`).
		Build()
	p, err := planner.New(backend)
	require.NoError(t, err)

	plans, err := p.Plan(context.Background(), questions("Which parts?"), supplierSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"Part"}, plans[0].Entities)
	backend.AssertCalled(t, `unknown class "Warehouse"`)
}

func TestPlan_BudgetIsTwo(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).
		Always(func(generate.Request) (string, error) {
			return `{"question": "q", "entities": [], "edges": ["ships_to"], "filters": {}}`, nil
		}).
		Build()
	p, err := planner.New(backend)
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), questions("a?", "b?"), supplierSchema())
	var genErr *apperrors.GenerationError
	require.True(t, errors.As(err, &genErr), "got %T: %v", err, err)
	assert.Equal(t, planner.DefaultMaxAttempts, genErr.Attempts)
	assert.Contains(t, err.Error(), "planning question 1")
	backend.AssertCallCount(t, planner.DefaultMaxAttempts)
}

func TestPlan_FirstFailureAbortsConcurrentRun(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	backend := testutil.NewMockBackendBuilder(t).
		Always(func(req generate.Request) (string, error) {
			calls.Add(1)
			if questionOf(req.Prompt) == "fails?" {
				return "", errors.New("quota exceeded")
			}
			return echoPlan(req)
		}).
		Build()
	p, err := planner.New(backend, planner.WithConcurrency(2))
	require.NoError(t, err)

	plans, err := p.Plan(context.Background(), questions("fails?", "ok?"), supplierSchema())
	assert.Nil(t, plans)
	var backendErr *apperrors.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestPlan_SlowBackendCanceled(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).
		WithResponse(`{}`).WithDelay(5 * time.Second).
		Build()
	p, err := planner.New(backend)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Plan(ctx, questions("slow?"), supplierSchema())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPlan_NullsNormalized(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).
		WithResponse(`{"question": "q", "entities": null, "edges": null, "filters": null}`).
		Build()
	p, err := planner.New(backend)
	require.NoError(t, err)

	plans, err := p.Plan(context.Background(), questions("anything?"), supplierSchema())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, planner.WriteJSON(&buf, plans))
	assert.NotContains(t, buf.String(), "null")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	plans := []planner.Plan{
		{Question: "a?", Entities: []string{"Part"}, Edges: []string{}, Filters: map[string]string{}},
		{Question: "b?", Entities: []string{"Supplier"}, Edges: []string{"supplies"}, Filters: map[string]string{"tier": "1"}},
	}

	var buf bytes.Buffer
	require.NoError(t, planner.WriteJSON(&buf, plans))

	var decoded []planner.Plan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	if diff := cmp.Diff(plans, decoded); diff != "" {
		t.Errorf("plans mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	require.NoError(t, planner.WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := planner.BuildPrompt("Which parts?", supplierSchema())
	assert.True(t, strings.HasPrefix(prompt, "Question: Which parts?\n"))
	assert.Contains(t, prompt, "Available classes: Supplier, Part")
	assert.Contains(t, prompt, "Available associations: supplies")

	empty := supplierSchema()
	empty.Associations = nil
	assert.Contains(t, planner.BuildPrompt("q", empty), "Available associations: (none)")
}
