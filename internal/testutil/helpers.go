package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Aputze/deep-research/pkg/domain"
	"github.com/Aputze/deep-research/pkg/observability"
)

// TestTimeout provides a standard timeout for test contexts
const TestTimeout = 5 * time.Second

// NewTestContext creates a context with standard test timeout
func NewTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	t.Cleanup(cancel)
	return ctx
}

// NewTestRequest creates a test research request
func NewTestRequest(query string) *domain.ResearchRequest {
	return &domain.ResearchRequest{
		ID:          "test-req-1",
		Query:       query,
		NumSearches: 2,
		Timestamp:   time.Now(),
	}
}

// NewTestTelemetry creates telemetry with tracing and metrics disabled so
// tests never touch exporters.
func NewTestTelemetry(t *testing.T) *observability.Telemetry {
	t.Helper()
	telemetry, err := observability.NewTelemetry(&observability.TelemetryConfig{
		ServiceName:    "test-service",
		ServiceVersion: "test",
		Environment:    "test",
		SamplingRate:   1.0,
		EnableTracing:  false,
		EnableMetrics:  false,
	})
	if err != nil {
		t.Fatalf("failed to create test telemetry: %v", err)
	}
	return telemetry
}

// AssertEqual checks if two values are equal
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertNoError checks if error is nil
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertError checks if error is not nil
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error but got nil", msg)
	}
}

// AssertContains checks that haystack contains needle
func AssertContains(t *testing.T, haystack, needle, msg string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("%s: %q not found in output", msg, needle)
	}
}
