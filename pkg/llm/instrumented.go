package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Aputze/deep-research/pkg/domain"
	"github.com/Aputze/deep-research/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedCompletionClient wraps a completion client with observability
type InstrumentedCompletionClient struct {
	client    domain.CompletionClient
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
	model     string
}

// NewInstrumentedCompletionClient creates a new instrumented completion client
func NewInstrumentedCompletionClient(client domain.CompletionClient, telemetry *observability.Telemetry, model string) (*InstrumentedCompletionClient, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if telemetry == nil {
		return nil, fmt.Errorf("telemetry is required")
	}

	metrics, err := telemetry.Metrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return &InstrumentedCompletionClient{
		client:    client,
		telemetry: telemetry,
		metrics:   metrics,
		model:     model,
	}, nil
}

// Chat performs an instrumented chat completion
func (c *InstrumentedCompletionClient) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.ChatResponse, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			attribute.String("llm.model", c.model),
			attribute.String("llm.provider", "ollama"),
			attribute.Float64("llm.temperature", opts.Temperature),
			attribute.Int("llm.message_count", len(messages)),
			attribute.String("llm.format", string(opts.Format)),
			attribute.Int("llm.tool_count", len(opts.Tools)),
		),
	)
	defer span.End()

	startTime := time.Now()
	response, err := c.client.Chat(ctx, messages, opts)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", response.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", response.Usage.CompletionTokens),
		attribute.Int("llm.total_tokens", response.Usage.TotalTokens),
		attribute.Int("llm.tool_calls", len(response.ToolCalls)),
	)

	c.metrics.RecordCompletionRequest(ctx, c.model,
		int64(response.Usage.PromptTokens),
		int64(response.Usage.CompletionTokens),
		duration)

	return response, nil
}

// CheckHealth verifies the wrapped completion service is reachable
func (c *InstrumentedCompletionClient) CheckHealth(ctx context.Context) error {
	ctx, span := c.telemetry.StartSpan(ctx, "llm.health_check")
	defer span.End()

	err := c.client.CheckHealth(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
