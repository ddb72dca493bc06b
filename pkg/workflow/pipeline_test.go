package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Aputze/deep-research/pkg/config"
	"github.com/Aputze/deep-research/pkg/domain"
)

// mockInvoker scripts every stage of the pipeline.
type mockInvoker struct {
	planFunc    func(ctx context.Context, traceID, query string, numSearches int) (*domain.SearchPlan, error)
	searchFunc  func(ctx context.Context, traceID, input string) (string, error)
	writeFunc   func(ctx context.Context, traceID, query string, summaries []string) (*domain.DraftReport, error)
	auditFunc   func(ctx context.Context, traceID, report string) (*domain.AuditFindings, error)
	deliverFunc func(ctx context.Context, traceID, report string) (*domain.DeliveryResult, error)

	writeCalls   int
	deliverCalls int
}

func (m *mockInvoker) Plan(ctx context.Context, traceID, query string, numSearches int) (*domain.SearchPlan, error) {
	return m.planFunc(ctx, traceID, query, numSearches)
}

func (m *mockInvoker) Search(ctx context.Context, traceID, input string) (string, error) {
	return m.searchFunc(ctx, traceID, input)
}

func (m *mockInvoker) Write(ctx context.Context, traceID, query string, summaries []string) (*domain.DraftReport, error) {
	m.writeCalls++
	return m.writeFunc(ctx, traceID, query, summaries)
}

func (m *mockInvoker) Audit(ctx context.Context, traceID, report string) (*domain.AuditFindings, error) {
	return m.auditFunc(ctx, traceID, report)
}

func (m *mockInvoker) Deliver(ctx context.Context, traceID, report string) (*domain.DeliveryResult, error) {
	m.deliverCalls++
	return m.deliverFunc(ctx, traceID, report)
}

func healthyInvoker() *mockInvoker {
	return &mockInvoker{
		planFunc: func(ctx context.Context, traceID, query string, numSearches int) (*domain.SearchPlan, error) {
			plan := &domain.SearchPlan{}
			for i := 0; i < numSearches; i++ {
				plan.Searches = append(plan.Searches, domain.SearchPlanItem{
					Query:  fmt.Sprintf("latest %s part %d", query, i+1),
					Reason: "coverage",
				})
			}
			return plan, nil
		},
		searchFunc: func(ctx context.Context, traceID, input string) (string, error) {
			return strings.Repeat("Recent finding about the topic. ", 4), nil
		},
		writeFunc: func(ctx context.Context, traceID, query string, summaries []string) (*domain.DraftReport, error) {
			return &domain.DraftReport{
				ShortSummary:      "Short summary.",
				MarkdownReport:    "Findings body without heading.",
				FollowUpQuestions: []string{"next topic"},
			}, nil
		},
		auditFunc: func(ctx context.Context, traceID, report string) (*domain.AuditFindings, error) {
			return &domain.AuditFindings{
				ConfidenceScore: domain.ConfidenceScore{Score: 70, Explanation: []string{"decent sourcing"}},
				CriticalSummary: "Generally solid.",
			}, nil
		},
		deliverFunc: func(ctx context.Context, traceID, report string) (*domain.DeliveryResult, error) {
			return &domain.DeliveryResult{Status: domain.DeliverySuccess}, nil
		},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Research.AuditTimeout = "2s"
	return cfg
}

func collect(t *testing.T, events <-chan domain.ProgressEvent) []domain.ProgressEvent {
	t.Helper()
	var out []domain.ProgressEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for event stream to close")
		}
	}
}

func finalEvents(events []domain.ProgressEvent) []domain.ProgressEvent {
	var finals []domain.ProgressEvent
	for _, ev := range events {
		if ev.Final {
			finals = append(finals, ev)
		}
	}
	return finals
}

func allText(events []domain.ProgressEvent) string {
	var b strings.Builder
	for _, ev := range events {
		b.WriteString(ev.Text)
	}
	return b.String()
}

func TestRunHappyPathWithoutEmail(t *testing.T) {
	invoker := healthyInvoker()
	pipeline, err := NewPipeline(testConfig(), invoker, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	events := collect(t, pipeline.Run(context.Background(), &domain.ResearchRequest{
		ID:          "run-1",
		Query:       "widget trends",
		NumSearches: 2,
	}))

	finals := finalEvents(events)
	if len(finals) != 1 {
		t.Fatalf("expected exactly one final-artifact event, got %d", len(finals))
	}

	artifact := finals[0].Text
	if !strings.HasPrefix(strings.TrimSpace(artifact), "# Report") {
		t.Error("final artifact missing canonical heading")
	}
	if !strings.Contains(artifact, "## Critical Audit Report") {
		t.Error("final artifact missing audit section")
	}
	if !strings.Contains(artifact, "**Research Request:** widget trends") {
		t.Error("final artifact signature missing query")
	}
	if !IsFinalArtifact(artifact) {
		t.Error("final artifact fails the chunk detection heuristic")
	}

	text := allText(events)
	if !strings.Contains(text, "*Trace ID: `run-1`*") {
		t.Error("missing trace announcement")
	}
	if !strings.Contains(text, "**Starting research process...**") {
		t.Error("missing start status")
	}
	if !strings.Contains(text, "Generated 2 search queries") {
		t.Error("missing planner completion status")
	}
	if !strings.Contains(text, "Search 1/2") || !strings.Contains(text, "Search 2/2") {
		t.Error("missing per-search enumeration")
	}
	if !strings.Contains(text, "Collected 2 search results") {
		t.Error("missing search completion status")
	}
	if strings.Contains(text, "email phase") {
		t.Error("email events present although delivery was disabled")
	}
	if invoker.deliverCalls != 0 {
		t.Errorf("deliver called %d times with email disabled", invoker.deliverCalls)
	}

	last := events[len(events)-1].Text
	if !strings.Contains(last, "**Research process complete!** (Email sending was disabled)") {
		t.Errorf("unexpected terminal event: %q", last)
	}

	// The artifact precedes the terminal event.
	if events[len(events)-1].Final {
		t.Error("terminal event must not be the artifact")
	}
}

func TestRunAuditTimeoutStillEmitsArtifact(t *testing.T) {
	invoker := healthyInvoker()
	invoker.auditFunc = func(ctx context.Context, traceID, report string) (*domain.AuditFindings, error) {
		// Never resolves within the budget.
		<-ctx.Done()
		return nil, ctx.Err()
	}

	cfg := testConfig()
	cfg.Research.AuditTimeout = "50ms"

	pipeline, err := NewPipeline(cfg, invoker, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	start := time.Now()
	events := collect(t, pipeline.Run(context.Background(), &domain.ResearchRequest{
		Query:       "widget trends",
		NumSearches: 1,
	}))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("run did not respect audit timeout, took %s", elapsed)
	}

	finals := finalEvents(events)
	if len(finals) != 1 {
		t.Fatalf("expected exactly one final-artifact event, got %d", len(finals))
	}
	if strings.Contains(finals[0].Text, "## Critical Audit Report") {
		t.Error("timed-out audit must not appear in the report")
	}
	if !strings.Contains(finals[0].Text, "## Report Signature") {
		t.Error("signature missing from unaudited report")
	}

	text := allText(events)
	if !strings.Contains(text, "**Critic Agent** timed out") {
		t.Error("missing audit timeout warning")
	}
	if !strings.Contains(text, "**Research process complete!**") {
		t.Error("run did not reach completion")
	}
}

func TestRunAuditErrorAbsorbed(t *testing.T) {
	invoker := healthyInvoker()
	invoker.auditFunc = func(ctx context.Context, traceID, report string) (*domain.AuditFindings, error) {
		return nil, errors.New("critic unavailable")
	}

	pipeline, err := NewPipeline(testConfig(), invoker, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	events := collect(t, pipeline.Run(context.Background(), &domain.ResearchRequest{
		Query:       "widget trends",
		NumSearches: 1,
	}))

	finals := finalEvents(events)
	if len(finals) != 1 {
		t.Fatalf("expected exactly one final-artifact event, got %d", len(finals))
	}

	text := allText(events)
	if !strings.Contains(text, "**Critic Agent** error: ") {
		t.Error("missing absorbed audit error warning")
	}
	if strings.Contains(text, "**Fatal Error:**") {
		t.Error("audit failure must not be fatal")
	}
}

func TestRunDeliverErrorAbsorbedAndStreamCloses(t *testing.T) {
	invoker := healthyInvoker()
	invoker.deliverFunc = func(ctx context.Context, traceID, report string) (*domain.DeliveryResult, error) {
		return nil, errors.New("deliverer completion: no tool registry configured")
	}

	pipeline, err := NewPipeline(testConfig(), invoker, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	// collect fails the test if the channel never closes.
	events := collect(t, pipeline.Run(context.Background(), &domain.ResearchRequest{
		Query:       "widget trends",
		NumSearches: 1,
		SendEmail:   true,
	}))

	finals := finalEvents(events)
	if len(finals) != 1 {
		t.Fatalf("expected exactly one final-artifact event, got %d", len(finals))
	}

	text := allText(events)
	if !strings.Contains(text, "Email sending failed:") {
		t.Error("missing delivery warning")
	}
	if strings.Contains(text, "**Fatal Error:**") {
		t.Error("deliver error must not be fatal")
	}
}

func TestRunDeliveryFailureAbsorbed(t *testing.T) {
	invoker := healthyInvoker()
	invoker.deliverFunc = func(ctx context.Context, traceID, report string) (*domain.DeliveryResult, error) {
		return &domain.DeliveryResult{
			Status:  domain.DeliveryError,
			Message: "MAILJET_API_KEY or MAILJET_API_SECRET not configured. Email not sent.",
		}, nil
	}

	pipeline, err := NewPipeline(testConfig(), invoker, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	events := collect(t, pipeline.Run(context.Background(), &domain.ResearchRequest{
		Query:       "widget trends",
		NumSearches: 1,
		SendEmail:   true,
	}))

	finals := finalEvents(events)
	if len(finals) != 1 {
		t.Fatalf("expected exactly one final-artifact event, got %d", len(finals))
	}

	text := allText(events)
	if !strings.Contains(text, "(email will send next)") {
		t.Error("report-ready status missing email variant")
	}

	warnings := 0
	for _, ev := range events {
		if strings.Contains(ev.Text, "Email sending failed:") {
			warnings++
		}
		if strings.Contains(ev.Text, "**Fatal Error:**") {
			t.Error("delivery failure must not be fatal")
		}
	}
	if warnings != 1 {
		t.Errorf("expected exactly one delivery warning, got %d", warnings)
	}

	// The artifact was streamed before delivery was attempted.
	artifactSeen := false
	for _, ev := range events {
		if ev.Final {
			artifactSeen = true
		}
		if strings.Contains(ev.Text, "**Starting email phase...**") && !artifactSeen {
			t.Error("delivery started before the artifact was streamed")
		}
	}
}

func TestRunDeliverySuccess(t *testing.T) {
	invoker := healthyInvoker()
	pipeline, err := NewPipeline(testConfig(), invoker, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	events := collect(t, pipeline.Run(context.Background(), &domain.ResearchRequest{
		Query:       "widget trends",
		NumSearches: 1,
		SendEmail:   true,
	}))

	if invoker.deliverCalls != 1 {
		t.Errorf("expected one delivery call, got %d", invoker.deliverCalls)
	}

	text := allText(events)
	if !strings.Contains(text, "**Email Agent** completed - Report sent successfully") {
		t.Error("missing delivery success status")
	}
	last := events[len(events)-1].Text
	if !strings.Contains(last, "**Research process complete!**") {
		t.Errorf("unexpected terminal event: %q", last)
	}
}

func TestRunPlanningFailureIsFatal(t *testing.T) {
	invoker := healthyInvoker()
	invoker.planFunc = func(ctx context.Context, traceID, query string, numSearches int) (*domain.SearchPlan, error) {
		return nil, errors.New("planner unavailable")
	}

	pipeline, err := NewPipeline(testConfig(), invoker, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	events := collect(t, pipeline.Run(context.Background(), &domain.ResearchRequest{
		Query:       "widget trends",
		NumSearches: 2,
	}))

	if len(finalEvents(events)) != 0 {
		t.Error("failed run must not emit a final artifact")
	}
	if invoker.writeCalls != 0 {
		t.Error("no stage may run after a fatal planning failure")
	}

	text := allText(events)
	if !strings.Contains(text, "**Error planning searches:**") {
		t.Error("missing planning error event")
	}
	if !strings.Contains(text, "**Fatal Error:**") {
		t.Error("missing fatal error event")
	}
	if strings.Contains(text, "**Research process complete!**") {
		t.Error("failed run must not report completion")
	}
}

func TestRunClampsSearchCount(t *testing.T) {
	var requested int
	invoker := healthyInvoker()
	base := invoker.planFunc
	invoker.planFunc = func(ctx context.Context, traceID, query string, numSearches int) (*domain.SearchPlan, error) {
		requested = numSearches
		return base(ctx, traceID, query, numSearches)
	}

	pipeline, err := NewPipeline(testConfig(), invoker, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	collect(t, pipeline.Run(context.Background(), &domain.ResearchRequest{
		Query:       "widget trends",
		NumSearches: 12,
	}))

	if requested != domain.MaxSearches {
		t.Errorf("expected clamped count %d, got %d", domain.MaxSearches, requested)
	}
}
