package observability

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// Counters
	pipelineRunsTotal      metric.Int64Counter
	stageInvocationsTotal  metric.Int64Counter
	stageFailuresTotal     metric.Int64Counter
	searchAttemptsTotal    metric.Int64Counter
	searchesDroppedTotal   metric.Int64Counter
	completionRequests     metric.Int64Counter
	completionTokensTotal  metric.Int64Counter
	toolExecutionsTotal    metric.Int64Counter
	progressEventsTotal    metric.Int64Counter
	deliveryFailuresTotal  metric.Int64Counter

	// Histograms
	pipelineDuration   metric.Float64Histogram
	stageDuration      metric.Float64Histogram
	completionDuration metric.Float64Histogram
	toolDuration       metric.Float64Histogram

	// Gauge backing values
	activeRuns     int64
	activeSearches int64
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{
		meter: meter,
	}

	var err error

	m.pipelineRunsTotal, err = meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Total number of research pipeline runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.stageInvocationsTotal, err = meter.Int64Counter(
		"stage_invocations_total",
		metric.WithDescription("Total number of stage invocations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.stageFailuresTotal, err = meter.Int64Counter(
		"stage_failures_total",
		metric.WithDescription("Total number of stage failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.searchAttemptsTotal, err = meter.Int64Counter(
		"search_attempts_total",
		metric.WithDescription("Total number of search attempts by recency tier"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.searchesDroppedTotal, err = meter.Int64Counter(
		"searches_dropped_total",
		metric.WithDescription("Total number of searches dropped after exhausting all tiers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.completionRequests, err = meter.Int64Counter(
		"completion_requests_total",
		metric.WithDescription("Total number of completion requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.completionTokensTotal, err = meter.Int64Counter(
		"completion_tokens_total",
		metric.WithDescription("Total number of tokens used by completions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.toolExecutionsTotal, err = meter.Int64Counter(
		"tool_executions_total",
		metric.WithDescription("Total number of tool executions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.progressEventsTotal, err = meter.Int64Counter(
		"progress_events_total",
		metric.WithDescription("Total number of progress events streamed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.deliveryFailuresTotal, err = meter.Int64Counter(
		"delivery_failures_total",
		metric.WithDescription("Total number of absorbed delivery failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.pipelineDuration, err = meter.Float64Histogram(
		"pipeline_duration_seconds",
		metric.WithDescription("Duration of full pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.stageDuration, err = meter.Float64Histogram(
		"stage_duration_seconds",
		metric.WithDescription("Duration of individual stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.completionDuration, err = meter.Float64Histogram(
		"completion_request_duration_seconds",
		metric.WithDescription("Duration of completion requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.toolDuration, err = meter.Float64Histogram(
		"tool_execution_duration_seconds",
		metric.WithDescription("Duration of tool executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge(
		"active_pipeline_runs",
		metric.WithDescription("Number of pipeline runs in flight"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(atomic.LoadInt64(&m.activeRuns))
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge(
		"active_searches",
		metric.WithDescription("Number of searches currently executing"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(atomic.LoadInt64(&m.activeSearches))
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRunStarted records the start of a pipeline run
func (m *Metrics) RecordRunStarted(ctx context.Context) {
	m.pipelineRunsTotal.Add(ctx, 1)
	atomic.AddInt64(&m.activeRuns, 1)
}

// RecordRunComplete records the end of a pipeline run
func (m *Metrics) RecordRunComplete(ctx context.Context, duration time.Duration, status string) {
	m.pipelineDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
	atomic.AddInt64(&m.activeRuns, -1)
}

// RecordStage records a completed stage invocation
func (m *Metrics) RecordStage(ctx context.Context, stage string, duration time.Duration, err error) {
	m.stageInvocationsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
		),
	)
	if err != nil {
		m.stageFailuresTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("stage", stage),
			),
		)
	}
	m.stageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
		),
	)
}

// RecordSearchAttempt records a single search attempt at a recency tier
func (m *Metrics) RecordSearchAttempt(ctx context.Context, tier string, sufficient bool) {
	status := "sufficient"
	if !sufficient {
		status = "insufficient"
	}
	m.searchAttemptsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tier", tier),
			attribute.String("status", status),
		),
	)
}

// RecordSearchDropped records a search omitted after exhausting every tier
func (m *Metrics) RecordSearchDropped(ctx context.Context) {
	m.searchesDroppedTotal.Add(ctx, 1)
}

// SearchStarted marks a search goroutine as active
func (m *Metrics) SearchStarted() {
	atomic.AddInt64(&m.activeSearches, 1)
}

// SearchFinished marks a search goroutine as done
func (m *Metrics) SearchFinished() {
	atomic.AddInt64(&m.activeSearches, -1)
}

// RecordCompletionRequest records a completion request with token usage
func (m *Metrics) RecordCompletionRequest(ctx context.Context, model string, promptTokens, completionTokens int64, duration time.Duration) {
	m.completionRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
		),
	)

	m.completionTokensTotal.Add(ctx, promptTokens+completionTokens,
		metric.WithAttributes(
			attribute.String("model", model),
		),
	)

	m.completionDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("model", model),
		),
	)
}

// RecordToolExecution records a tool execution
func (m *Metrics) RecordToolExecution(ctx context.Context, toolName string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	m.toolExecutionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", toolName),
			attribute.String("status", status),
		),
	)

	m.toolDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("tool", toolName),
			attribute.String("status", status),
		),
	)
}

// RecordProgressEvent records one streamed progress event
func (m *Metrics) RecordProgressEvent(ctx context.Context, final bool) {
	kind := "status"
	if final {
		kind = "artifact"
	}
	m.progressEventsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
		),
	)
}

// RecordDeliveryFailure records an absorbed delivery failure
func (m *Metrics) RecordDeliveryFailure(ctx context.Context) {
	m.deliveryFailuresTotal.Add(ctx, 1)
}

// ActiveRuns returns the number of pipeline runs in flight
func (m *Metrics) ActiveRuns() int64 {
	return atomic.LoadInt64(&m.activeRuns)
}
