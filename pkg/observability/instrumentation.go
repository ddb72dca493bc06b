package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentStage wraps a pipeline stage with observability
func (t *Telemetry) InstrumentStage(ctx context.Context, stage string, role string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, fmt.Sprintf("pipeline.stage.%s", stage),
		trace.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("agent.role", role),
		),
	)
	defer span.End()

	startTime := time.Now()

	err := fn(ctx)

	duration := time.Since(startTime)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(
		attribute.String("status", status),
		attribute.Float64("duration.seconds", duration.Seconds()),
	)

	return err
}

// InstrumentSearch wraps a single search attempt with observability
func (t *Telemetry) InstrumentSearch(ctx context.Context, query string, tier string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, "pipeline.search",
		trace.WithAttributes(
			attribute.Int("search.query_length", len(query)),
			attribute.String("search.recency_tier", tier),
		),
	)
	defer span.End()

	startTime := time.Now()

	err := fn(ctx)

	duration := time.Since(startTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(
		attribute.Float64("duration.seconds", duration.Seconds()),
	)

	return err
}

// InstrumentToolExecution wraps a tool execution with observability
func (t *Telemetry) InstrumentToolExecution(ctx context.Context, toolName string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, fmt.Sprintf("tool.%s", toolName),
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
		),
	)
	defer span.End()

	startTime := time.Now()

	err := fn(ctx)

	duration := time.Since(startTime)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(
		attribute.String("tool.status", status),
		attribute.Float64("tool.duration_seconds", duration.Seconds()),
	)

	return err
}

// StartResearchRun starts a root span for a research pipeline run
func (t *Telemetry) StartResearchRun(ctx context.Context, requestID, query string, numSearches int) (context.Context, trace.Span) {
	ctx, span := t.StartSpan(ctx, "research.run",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.Int("query.length", len(query)),
			attribute.Int("search.count", numSearches),
		),
	)

	return ctx, span
}
