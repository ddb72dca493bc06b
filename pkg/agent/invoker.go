// Package agent implements the stage invoker: single completion calls with
// role instructions, structured output decoding, and tool dispatch. The
// invoker never retries; retry policy belongs to the caller.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Aputze/deep-research/pkg/domain"
	"github.com/Aputze/deep-research/pkg/observability"
)

// Invoker performs one stage invocation at a time against the completion
// service. Each call receives an explicit StageContext rather than reading
// shared mutable state.
type Invoker struct {
	client    domain.CompletionClient
	registry  domain.ToolRegistry
	telemetry *observability.Telemetry
	logger    *observability.StructuredLogger
}

// NewInvoker creates a stage invoker. The registry may be nil when no tool
// stages are configured.
func NewInvoker(client domain.CompletionClient, registry domain.ToolRegistry, telemetry *observability.Telemetry) *Invoker {
	return &Invoker{
		client:    client,
		registry:  registry,
		telemetry: telemetry,
		logger:    observability.NewStructuredLogger("agent.invoker"),
	}
}

// PlannerContext builds the stage context for the planning stage.
func PlannerContext(traceID string, numSearches int) domain.StageContext {
	return domain.StageContext{
		TraceID:      traceID,
		Role:         domain.RolePlanner,
		Instructions: plannerInstructions(numSearches),
	}
}

// SearcherContext builds the stage context for one search invocation.
func SearcherContext(traceID string) domain.StageContext {
	return domain.StageContext{
		TraceID:      traceID,
		Role:         domain.RoleSearcher,
		Instructions: searcherInstructions,
	}
}

// WriterContext builds the stage context for the writing stage.
func WriterContext(traceID string) domain.StageContext {
	return domain.StageContext{
		TraceID:      traceID,
		Role:         domain.RoleWriter,
		Instructions: writerInstructions,
	}
}

// CriticContext builds the stage context for the audit stage.
func CriticContext(traceID string) domain.StageContext {
	return domain.StageContext{
		TraceID:      traceID,
		Role:         domain.RoleCritic,
		Instructions: criticInstructions,
	}
}

// DelivererContext builds the stage context for the delivery stage.
func DelivererContext(traceID string) domain.StageContext {
	return domain.StageContext{
		TraceID:      traceID,
		Role:         domain.RoleDeliverer,
		Instructions: delivererInstructions,
	}
}

func (inv *Invoker) messages(sc domain.StageContext, input string) []domain.Message {
	return []domain.Message{
		{Role: "system", Content: sc.Instructions},
		{Role: "user", Content: input},
	}
}

// Complete performs a plain text completion for the given stage context.
// An empty response is an error.
func (inv *Invoker) Complete(ctx context.Context, sc domain.StageContext, input string) (string, error) {
	resp, err := inv.client.Chat(ctx, inv.messages(sc, input), domain.ChatOptions{})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", sc.Role, err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("%s completion: %w", sc.Role, domain.ErrEmptyResponse)
	}

	inv.logger.Debug(ctx, "completion finished", map[string]interface{}{
		"role":           string(sc.Role),
		"trace_id":       sc.TraceID,
		"content_length": len(content),
	})

	return content, nil
}

// CompleteJSON performs a structured completion and decodes the response into
// out. Responses wrapped in markdown code fences are unwrapped first. A
// response that cannot be decoded is a SchemaMismatchError.
func (inv *Invoker) CompleteJSON(ctx context.Context, sc domain.StageContext, input string, out interface{}) error {
	resp, err := inv.client.Chat(ctx, inv.messages(sc, input), domain.ChatOptions{
		Format: domain.FormatJSON,
	})
	if err != nil {
		return fmt.Errorf("%s completion: %w", sc.Role, err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return fmt.Errorf("%s completion: %w", sc.Role, domain.ErrEmptyResponse)
	}

	content = stripCodeFence(content)

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return &domain.SchemaMismatchError{
			Role:   sc.Role,
			Detail: "response is not valid JSON",
			Err:    err,
		}
	}

	return nil
}

// CompleteWithTools performs a completion that may request tool calls, and
// dispatches each requested call through the registry. It returns the results
// of the executed calls in request order.
func (inv *Invoker) CompleteWithTools(ctx context.Context, sc domain.StageContext, input string, schemas []domain.ToolSchema) ([]interface{}, error) {
	if inv.registry == nil {
		return nil, fmt.Errorf("%s completion: no tool registry configured", sc.Role)
	}

	resp, err := inv.client.Chat(ctx, inv.messages(sc, input), domain.ChatOptions{
		Tools: schemas,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", sc.Role, err)
	}

	if len(resp.ToolCalls) == 0 {
		return nil, fmt.Errorf("%s completion: no tool calls requested", sc.Role)
	}

	results := make([]interface{}, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		result, err := inv.registry.Execute(ctx, call.Name, call.Args)
		if err != nil {
			return nil, fmt.Errorf("%s tool %q: %w", sc.Role, call.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// Plan runs the planning stage: clamp the requested count, ask for exactly
// that many searches, and clamp the returned plan. A plan with zero searches
// is a schema mismatch.
func (inv *Invoker) Plan(ctx context.Context, traceID, query string, numSearches int) (*domain.SearchPlan, error) {
	numSearches = domain.ClampSearchCount(numSearches)
	sc := PlannerContext(traceID, numSearches)

	input := fmt.Sprintf("Query: %s\n\nGenerate EXACTLY %d search queries.", query, numSearches)

	var plan domain.SearchPlan
	if err := inv.CompleteJSON(ctx, sc, input, &plan); err != nil {
		return nil, err
	}

	if len(plan.Searches) == 0 {
		return nil, &domain.SchemaMismatchError{
			Role:   domain.RolePlanner,
			Detail: "plan contains no searches",
		}
	}

	if len(plan.Searches) != numSearches {
		inv.logger.Warn(ctx, "planner produced unexpected search count", map[string]interface{}{
			"expected": numSearches,
			"actual":   len(plan.Searches),
		})
	}
	plan.Clamp(numSearches)

	return &plan, nil
}

// Search runs one search invocation and returns the summary text.
func (inv *Invoker) Search(ctx context.Context, traceID, input string) (string, error) {
	return inv.Complete(ctx, SearcherContext(traceID), input)
}

// Write runs the writing stage. A missing short summary is populated from the
// head of the report body; a missing report body is a schema mismatch.
func (inv *Invoker) Write(ctx context.Context, traceID, query string, summaries []string) (*domain.DraftReport, error) {
	sc := WriterContext(traceID)

	input := fmt.Sprintf("Original query: %s\nSummarized search results: %s", query, strings.Join(summaries, "\n\n---\n\n"))

	var draft domain.DraftReport
	if err := inv.CompleteJSON(ctx, sc, input, &draft); err != nil {
		return nil, err
	}

	if strings.TrimSpace(draft.MarkdownReport) == "" {
		return nil, &domain.SchemaMismatchError{
			Role:   domain.RoleWriter,
			Detail: "report body is empty",
		}
	}

	if strings.TrimSpace(draft.ShortSummary) == "" {
		draft.ShortSummary = truncate(draft.MarkdownReport, 280)
	}
	if draft.FollowUpQuestions == nil {
		draft.FollowUpQuestions = []string{}
	}

	return &draft, nil
}

// Audit runs the critic stage against a finished report body.
func (inv *Invoker) Audit(ctx context.Context, traceID, report string) (*domain.AuditFindings, error) {
	sc := CriticContext(traceID)

	input := fmt.Sprintf("Research Report to Audit:\n\n%s", report)

	var findings domain.AuditFindings
	if err := inv.CompleteJSON(ctx, sc, input, &findings); err != nil {
		return nil, err
	}

	if findings.ConfidenceScore.Score < 0 {
		findings.ConfidenceScore.Score = 0
	}
	if findings.ConfidenceScore.Score > 100 {
		findings.ConfidenceScore.Score = 100
	}

	return &findings, nil
}

// Deliver runs the delivery stage: the deliverer formats the report as HTML
// email and sends it through its tool.
func (inv *Invoker) Deliver(ctx context.Context, traceID, report string) (*domain.DeliveryResult, error) {
	sc := DelivererContext(traceID)

	if inv.registry == nil {
		return nil, fmt.Errorf("%s completion: no tool registry configured", sc.Role)
	}

	var schemas []domain.ToolSchema
	for _, tool := range inv.registry.List() {
		schemas = append(schemas, tool.Schema())
	}

	results, err := inv.CompleteWithTools(ctx, sc, report, schemas)
	if err != nil {
		return nil, err
	}

	// The deliverer is instructed to send exactly one email; the last tool
	// result carries the delivery outcome.
	last := results[len(results)-1]
	if dr, ok := last.(*domain.DeliveryResult); ok {
		return dr, nil
	}

	return &domain.DeliveryResult{Status: domain.DeliverySuccess}, nil
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
