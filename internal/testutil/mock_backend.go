// Package testutil provides test utilities and helpers for outcomegen tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariel-frischer/outcomegen/internal/generate"
)

// CallRecord records a single backend call with metadata.
type CallRecord struct {
	Request   generate.Request
	Timestamp time.Time
	Response  string
	Error     error
}

// MockBackendBuilder provides a fluent API for configuring mock backend behavior.
type MockBackendBuilder struct {
	name      string
	responses []mockResponse
	fallback  *mockResponse
	t         *testing.T
}

type mockResponse struct {
	response    string
	responseErr error
	respond     func(generate.Request) (string, error)
	delay       time.Duration
}

// NewMockBackendBuilder creates a new MockBackendBuilder for configuring mock behavior.
func NewMockBackendBuilder(t *testing.T) *MockBackendBuilder {
	t.Helper()
	return &MockBackendBuilder{name: "mock", t: t}
}

// WithName sets the backend name reported in errors.
func (b *MockBackendBuilder) WithName(name string) *MockBackendBuilder {
	b.name = name
	return b
}

// WithResponse adds a successful response to the response queue.
func (b *MockBackendBuilder) WithResponse(response string) *MockBackendBuilder {
	b.responses = append(b.responses, mockResponse{response: response})
	return b
}

// WithError adds an error response to the response queue.
func (b *MockBackendBuilder) WithError(err error) *MockBackendBuilder {
	b.responses = append(b.responses, mockResponse{responseErr: err})
	return b
}

// WithFunc adds a response computed from the request.
func (b *MockBackendBuilder) WithFunc(fn func(generate.Request) (string, error)) *MockBackendBuilder {
	b.responses = append(b.responses, mockResponse{respond: fn})
	return b
}

// ThenResponse adds another response to be returned on subsequent calls.
func (b *MockBackendBuilder) ThenResponse(response string) *MockBackendBuilder {
	return b.WithResponse(response)
}

// ThenError adds an error to be returned on subsequent calls.
func (b *MockBackendBuilder) ThenError(err error) *MockBackendBuilder {
	return b.WithError(err)
}

// WithDelay adds a delay before returning the last queued response.
func (b *MockBackendBuilder) WithDelay(d time.Duration) *MockBackendBuilder {
	if len(b.responses) > 0 {
		b.responses[len(b.responses)-1].delay = d
	}
	return b
}

// Always sets the response used once the queue is drained, and for every
// call when nothing was queued.
func (b *MockBackendBuilder) Always(fn func(generate.Request) (string, error)) *MockBackendBuilder {
	b.fallback = &mockResponse{respond: fn}
	return b
}

// Build returns the configured MockBackend.
func (b *MockBackendBuilder) Build() *MockBackend {
	return &MockBackend{builder: b}
}

// MockBackend implements generate.Backend with scripted responses. It is
// safe for concurrent use.
type MockBackend struct {
	builder *MockBackendBuilder

	mu           sync.Mutex
	currentIndex int
	calls        []CallRecord
}

// Name implements generate.Backend.
func (m *MockBackend) Name() string { return m.builder.name }

// Generate implements generate.Backend.
func (m *MockBackend) Generate(ctx context.Context, req generate.Request) (string, error) {
	m.mu.Lock()
	var resp mockResponse
	switch {
	case m.currentIndex < len(m.builder.responses):
		resp = m.builder.responses[m.currentIndex]
		m.currentIndex++
	case m.builder.fallback != nil:
		resp = *m.builder.fallback
	default:
		m.mu.Unlock()
		m.builder.t.Errorf("unexpected backend call #%d with prompt %q", len(m.calls)+1, req.Prompt)
		return "", context.Canceled
	}
	m.mu.Unlock()

	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	out, err := resp.response, resp.responseErr
	if resp.respond != nil {
		out, err = resp.respond(req)
	}

	m.mu.Lock()
	m.calls = append(m.calls, CallRecord{Request: req, Timestamp: time.Now(), Response: out, Error: err})
	m.mu.Unlock()
	return out, err
}

// GetCalls returns all recorded calls.
func (m *MockBackend) GetCalls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]CallRecord, len(m.calls))
	copy(result, m.calls)
	return result
}

// GetCallCount returns the number of calls made.
func (m *MockBackend) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// AssertCalled verifies that some call's prompt contains substr.
func (m *MockBackend) AssertCalled(t *testing.T, substr string) {
	t.Helper()
	calls := m.GetCalls()
	for _, call := range calls {
		if strings.Contains(call.Request.Prompt, substr) {
			return
		}
	}
	t.Errorf("expected a call with prompt containing %q, but was not found in %d calls", substr, len(calls))
}

// AssertCallCount verifies the number of calls.
func (m *MockBackend) AssertCallCount(t *testing.T, expected int) {
	t.Helper()
	if got := m.GetCallCount(); got != expected {
		t.Errorf("expected backend to be called %d times, got %d", expected, got)
	}
}
