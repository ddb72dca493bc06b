package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aputze/deep-research/pkg/config"
	"github.com/Aputze/deep-research/pkg/domain"
	"github.com/Aputze/deep-research/pkg/observability"
	"github.com/Aputze/deep-research/pkg/report"
)

// stageInvoker is the slice of the stage invoker the pipeline drives.
type stageInvoker interface {
	Plan(ctx context.Context, traceID, query string, numSearches int) (*domain.SearchPlan, error)
	Search(ctx context.Context, traceID, input string) (string, error)
	Write(ctx context.Context, traceID, query string, summaries []string) (*domain.DraftReport, error)
	Audit(ctx context.Context, traceID, report string) (*domain.AuditFindings, error)
	Deliver(ctx context.Context, traceID, report string) (*domain.DeliveryResult, error)
}

// Pipeline runs the research state machine: Planning, Searching, Writing,
// Auditing, optionally Delivering, then Done. Failures in the first three
// stages are fatal; audit and delivery failures are absorbed as warnings.
type Pipeline struct {
	cfg       *config.Config
	invoker   stageInvoker
	engine    *SearchEngine
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
	logger    *observability.StructuredLogger
}

// NewPipeline creates the pipeline orchestrator
func NewPipeline(cfg *config.Config, invoker stageInvoker, telemetry *observability.Telemetry) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("stage invoker is required")
	}

	p := &Pipeline{
		cfg:     cfg,
		invoker: invoker,
		logger:  observability.NewStructuredLogger("workflow.pipeline"),
	}

	if telemetry != nil {
		p.telemetry = telemetry
		metrics, err := telemetry.Metrics()
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		p.metrics = metrics
	}

	p.engine = NewSearchEngine(invoker, p.telemetry, p.metrics, cfg.Research.MinSummaryLength)

	return p, nil
}

// Run executes the pipeline for one request and streams progress events.
// The channel is closed when the run reaches a terminal state. There is no
// external cancellation contract beyond the passed context; a started run
// drives itself to Done or Failed.
func (p *Pipeline) Run(ctx context.Context, request *domain.ResearchRequest) <-chan domain.ProgressEvent {
	events := make(chan domain.ProgressEvent, 16)
	go p.run(ctx, request, events)
	return events
}

func (p *Pipeline) run(ctx context.Context, request *domain.ResearchRequest, events chan<- domain.ProgressEvent) {
	defer close(events)

	traceID := request.ID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	numSearches := domain.ClampSearchCount(request.NumSearches)
	state := NewRunState(*request, traceID)

	if p.telemetry != nil {
		var span trace.Span
		ctx, span = p.telemetry.StartResearchRun(ctx, traceID, request.Query, numSearches)
		defer span.End()
	}
	if p.metrics != nil {
		p.metrics.RecordRunStarted(ctx)
		defer func(start time.Time) {
			p.metrics.RecordRunComplete(ctx, time.Since(start), string(state.Stage()))
		}(time.Now())
	}

	emit := func(ev domain.ProgressEvent) {
		if p.metrics != nil {
			p.metrics.RecordProgressEvent(ctx, ev.Final)
		}
		events <- ev
	}

	fail := func(stage domain.Stage, phase string, err error) {
		state.SetStage(domain.StageFailed)
		p.logger.Error(ctx, "fatal pipeline error", err, map[string]interface{}{
			"stage":    string(stage),
			"trace_id": traceID,
		})
		emit(statusEvent(fmt.Sprintf("**Error %s:** %s", phase, err)))
		emit(statusEvent(fmt.Sprintf("**Fatal Error:** %s\n\nPlease check the logs for more details.", err)))
	}

	p.logger.Info(ctx, "starting research run", map[string]interface{}{
		"trace_id":     traceID,
		"num_searches": numSearches,
		"send_email":   request.SendEmail,
	})

	emit(statusEvent(fmt.Sprintf("*Trace ID: `%s`*\n\n", traceID)))
	emit(statusEvent("**Starting research process...**\n\n"))

	// Planning
	emit(statusEvent(fmt.Sprintf("- **Agent: Planner Agent** - Planning search strategy for: *%s*\n\n", request.Query)))

	plan, err := p.planStage(ctx, traceID, request.Query, numSearches)
	if err != nil {
		fail(domain.StagePlanning, "planning searches", err)
		return
	}
	state.SetPlan(plan)

	emit(statusEvent(fmt.Sprintf("- **Planner Agent** completed - Generated %d search queries\n\n", len(plan.Searches))))
	emit(statusEvent("**Starting search phase...**\n\n"))

	// Searching
	state.SetStage(domain.StageSearching)
	emit(statusEvent(fmt.Sprintf("- **Agent: Search Agent** - Performing %d parallel searches...\n\n", len(plan.Searches))))
	for i, item := range plan.Searches {
		emit(statusEvent(fmt.Sprintf("  - Search %d/%d: *%s*\n", i+1, len(plan.Searches), item.Query)))
	}

	outcomes := p.searchStage(ctx, traceID, plan)
	state.SetOutcomes(outcomes)

	emit(statusEvent(fmt.Sprintf("- **Search Agent** completed - Collected %d search results\n\n", len(outcomes))))
	emit(statusEvent("**Starting report writing phase...**\n\n"))

	// Writing
	state.SetStage(domain.StageWriting)
	emit(statusEvent("- **Agent: Writer Agent** - Synthesizing research findings into comprehensive report...\n\n"))

	draft, err := p.writeStage(ctx, traceID, request.Query, outcomes)
	if err != nil {
		fail(domain.StageWriting, "writing report", err)
		return
	}
	state.SetDraft(draft)

	emit(statusEvent(fmt.Sprintf("- **Writer Agent** completed - Report generated (%d characters)\n\n", len(draft.MarkdownReport))))
	emit(statusEvent("**Starting critical audit phase...**\n\n"))

	// Auditing, absorbed on timeout or error.
	state.SetStage(domain.StageAuditing)
	emit(statusEvent("- **Agent: Critic Agent** - Auditing and validating research report...\n\n"))

	audit, auditErr := p.auditStage(ctx, traceID, draft.MarkdownReport)
	switch {
	case auditErr == nil:
		state.SetAudit(audit)
		emit(statusEvent("- **Critic Agent** completed - Critical audit generated\n\n"))
	case errors.Is(auditErr, domain.ErrAuditTimeout):
		p.logger.Warn(ctx, "critic timed out, skipping audit", map[string]interface{}{
			"timeout": p.cfg.Research.AuditTimeout,
		})
		emit(statusEvent("- **Critic Agent** timed out - Skipping audit and continuing with report\n\n"))
	default:
		p.logger.Warn(ctx, "audit failed, continuing with original report", map[string]interface{}{
			"error": auditErr.Error(),
		})
		emit(statusEvent(fmt.Sprintf("- **Critic Agent** error: %s. Continuing with original report.\n\n", auditErr)))
	}

	final := report.Assemble(draft, state.Audit(), report.Options{
		Query: request.Query,
		Model: p.cfg.Completion.Model,
		Now:   time.Now(),
	})
	state.SetFinalReport(final)

	// The report-ready artifact fires exactly once, before delivery is even
	// attempted.
	if request.SendEmail {
		emit(statusEvent("**Report ready - streaming to you now (email will send next)...**\n\n"))
	} else {
		emit(statusEvent("**Report ready - streaming to you now...**\n\n"))
	}
	if state.MarkArtifactEmitted() {
		emit(artifactEvent(final))
	}

	// Delivering, absorbed on failure.
	if request.SendEmail {
		state.SetStage(domain.StageDelivering)
		emit(statusEvent("**Starting email phase...**\n\n"))
		emit(statusEvent("- **Agent: Email Agent** - Formatting and sending report via email...\n\n"))

		if err := p.deliverStage(ctx, traceID, final); err != nil {
			if p.metrics != nil {
				p.metrics.RecordDeliveryFailure(ctx)
			}
			p.logger.Warn(ctx, "email delivery failed", map[string]interface{}{
				"error": err.Error(),
			})
			state.SetStage(domain.StageDone)
			emit(statusEvent(fmt.Sprintf("Email sending failed: %s. Research complete.", err)))
			return
		}

		emit(statusEvent("- **Email Agent** completed - Report sent successfully\n\n"))
		state.SetStage(domain.StageDone)
		emit(statusEvent("**Research process complete!**\n\n"))
		return
	}

	state.SetStage(domain.StageDone)
	emit(statusEvent("**Research process complete!** (Email sending was disabled)\n\n"))
}

func (p *Pipeline) planStage(ctx context.Context, traceID, query string, numSearches int) (*domain.SearchPlan, error) {
	var plan *domain.SearchPlan
	err := p.instrumentStage(ctx, domain.StagePlanning, domain.RolePlanner, func(ctx context.Context) error {
		var err error
		plan, err = p.invoker.Plan(ctx, traceID, query, numSearches)
		return err
	})
	if err != nil {
		return nil, domain.NewStageError(domain.StagePlanning, err)
	}
	return plan, nil
}

func (p *Pipeline) searchStage(ctx context.Context, traceID string, plan *domain.SearchPlan) []domain.SearchOutcome {
	var outcomes []domain.SearchOutcome
	_ = p.instrumentStage(ctx, domain.StageSearching, domain.RoleSearcher, func(ctx context.Context) error {
		outcomes = p.engine.Execute(ctx, traceID, plan)
		return nil
	})
	return outcomes
}

func (p *Pipeline) writeStage(ctx context.Context, traceID, query string, outcomes []domain.SearchOutcome) (*domain.DraftReport, error) {
	summaries := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		summaries = append(summaries, outcome.Summary)
	}

	var draft *domain.DraftReport
	err := p.instrumentStage(ctx, domain.StageWriting, domain.RoleWriter, func(ctx context.Context) error {
		var err error
		draft, err = p.invoker.Write(ctx, traceID, query, summaries)
		return err
	})
	if err != nil {
		return nil, domain.NewStageError(domain.StageWriting, err)
	}
	return draft, nil
}

// auditStage races the critic against the audit timeout. If the timer wins,
// the call is abandoned: its eventual result is discarded and never mutates
// the report.
func (p *Pipeline) auditStage(ctx context.Context, traceID, reportBody string) (*domain.AuditFindings, error) {
	timeout := p.cfg.AuditTimeout()
	auditCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type auditResult struct {
		findings *domain.AuditFindings
		err      error
	}
	done := make(chan auditResult, 1)

	go func() {
		var findings *domain.AuditFindings
		err := p.instrumentStage(auditCtx, domain.StageAuditing, domain.RoleCritic, func(ctx context.Context) error {
			var err error
			findings, err = p.invoker.Audit(ctx, traceID, reportBody)
			return err
		})
		done <- auditResult{findings: findings, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			return nil, domain.NewStageError(domain.StageAuditing, result.err)
		}
		return result.findings, nil
	case <-auditCtx.Done():
		return nil, domain.ErrAuditTimeout
	}
}

func (p *Pipeline) deliverStage(ctx context.Context, traceID, reportText string) error {
	var result *domain.DeliveryResult
	err := p.instrumentStage(ctx, domain.StageDelivering, domain.RoleDeliverer, func(ctx context.Context) error {
		var err error
		result, err = p.invoker.Deliver(ctx, traceID, reportText)
		return err
	})
	if err != nil {
		return domain.NewStageError(domain.StageDelivering, err)
	}
	if result != nil && result.Status == domain.DeliveryError {
		return domain.NewStageError(domain.StageDelivering, fmt.Errorf("%s", result.Message))
	}
	return nil
}

func (p *Pipeline) instrumentStage(ctx context.Context, stage domain.Stage, role domain.Role, fn func(context.Context) error) error {
	if p.telemetry == nil {
		return fn(ctx)
	}

	start := time.Now()
	err := p.telemetry.InstrumentStage(ctx, string(stage), string(role), fn)
	if p.metrics != nil {
		p.metrics.RecordStage(ctx, string(stage), time.Since(start), err)
	}
	return err
}
