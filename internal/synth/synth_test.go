package synth_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/generate"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/schema"
	"github.com/ariel-frischer/outcomegen/internal/synth"
	"github.com/ariel-frischer/outcomegen/internal/testutil"
)

func supplierOutcome(t *testing.T) *outcome.Specification {
	t.Helper()
	spec, err := outcome.Parse([]byte(testutil.SupplierOutcomeYAML), "outcome.yaml", outcome.FormatYAML)
	require.NoError(t, err)
	return spec
}

func schemaWithClasses(n int) string {
	s := schema.Specification{SchemaName: "big_schema", Description: "too big"}
	for i := 0; i < n; i++ {
		s.Classes = append(s.Classes, schema.Class{Name: fmt.Sprintf("Class%d", i), Fields: []string{"id"}})
	}
	data, _ := json.Marshal(s)
	return string(data)
}

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).WithResponse(testutil.SupplierSchemaJSON).Build()
	s, err := synth.New(backend)
	require.NoError(t, err)

	got, err := s.Synthesize(context.Background(), supplierOutcome(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "supplier_risk", got.SchemaName)
	assert.Equal(t, []string{"Supplier", "Part"}, got.ClassNames())
	for _, c := range got.Classes {
		assert.Equal(t, []string{schema.ProvenanceMixin}, c.Mixins)
	}

	calls := backend.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, synth.SystemPrompt, calls[0].Request.System)
	assert.NotNil(t, calls[0].Request.Schema)
}

func TestSynthesize_ThirteenClassesRejected(t *testing.T) {
	t.Parallel()

	t.Run("retry recovers", func(t *testing.T) {
		t.Parallel()
		backend := testutil.NewMockBackendBuilder(t).
			WithResponse(schemaWithClasses(13)).
			ThenResponse(testutil.SupplierSchemaJSON).
			Build()
		s, err := synth.New(backend)
		require.NoError(t, err)

		got, err := s.Synthesize(context.Background(), supplierOutcome(t), nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got.Classes), outcome.MaxClasses)
		backend.AssertCallCount(t, 2)
		backend.AssertCalled(t, "classes has 13 entries, at most 12 allowed")
	})

	t.Run("budget exhausted", func(t *testing.T) {
		t.Parallel()
		backend := testutil.NewMockBackendBuilder(t).
			Always(func(generate.Request) (string, error) { return schemaWithClasses(13), nil }).
			Build()
		s, err := synth.New(backend)
		require.NoError(t, err)

		got, err := s.Synthesize(context.Background(), supplierOutcome(t), nil)
		assert.Nil(t, got)
		var genErr *apperrors.GenerationError
		require.True(t, errors.As(err, &genErr), "got %T: %v", err, err)
		assert.Equal(t, synth.DefaultMaxAttempts, genErr.Attempts)
		assert.Contains(t, genErr.Reason, "classes has 13 entries")
		backend.AssertCallCount(t, synth.DefaultMaxAttempts)
	})
}

func TestSynthesize_RespectsOutcomeLimits(t *testing.T) {
	t.Parallel()

	spec := supplierOutcome(t)
	spec.Constraints.MaxClasses = 1

	backend := testutil.NewMockBackendBuilder(t).
		Always(func(generate.Request) (string, error) { return testutil.SupplierSchemaJSON, nil }).
		Build()
	s, err := synth.New(backend, synth.WithMaxAttempts(2))
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), spec, nil)
	var genErr *apperrors.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Contains(t, genErr.Reason, "classes: 2 exceeds the limit of 1")
	backend.AssertCallCount(t, 2)
}

func TestSynthesize_NamingViolationRetried(t *testing.T) {
	t.Parallel()

	bad := strings.Replace(testutil.SupplierSchemaJSON, `"supplier_risk"`, `"Test Name"`, 1)
	backend := testutil.NewMockBackendBuilder(t).
		WithResponse(bad).
		ThenResponse(testutil.SupplierSchemaJSON).
		Build()
	s, err := synth.New(backend)
	require.NoError(t, err)

	got, err := s.Synthesize(context.Background(), supplierOutcome(t), nil)
	require.NoError(t, err)
	assert.True(t, schema.IsSnakeCase(got.SchemaName))
	backend.AssertCalled(t, "snake_case")
}

func TestSynthesize_BackendErrorSurfaces(t *testing.T) {
	t.Parallel()

	backend := testutil.NewMockBackendBuilder(t).WithError(errors.New("401 unauthorized")).Build()
	s, err := synth.New(backend)
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), supplierOutcome(t), nil)
	var backendErr *apperrors.BackendError
	require.True(t, errors.As(err, &backendErr))
	backend.AssertCallCount(t, 1)
}

func TestNew_RequiresBackend(t *testing.T) {
	t.Parallel()

	_, err := synth.New(nil)
	assert.Error(t, err)
}
