package workflow

import (
	"sync"
	"time"

	"github.com/Aputze/deep-research/pkg/domain"
)

// RunState tracks one pipeline run: the request, the current stage, the
// intermediate artifacts, and the single-shot final-artifact guard. The
// orchestrator is the only writer during a run; the mutex covers readers
// that observe a run in flight.
type RunState struct {
	mu sync.RWMutex

	Request domain.ResearchRequest `json:"request"`
	TraceID string                 `json:"trace_id"`

	stage           domain.Stage
	plan            *domain.SearchPlan
	outcomes        []domain.SearchOutcome
	draft           *domain.DraftReport
	audit           *domain.AuditFindings
	finalReport     string
	artifactEmitted bool

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRunState creates the state for one pipeline run
func NewRunState(request domain.ResearchRequest, traceID string) *RunState {
	now := time.Now()
	return &RunState{
		Request:   request,
		TraceID:   traceID,
		stage:     domain.StagePlanning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStage advances the run to the given stage
func (s *RunState) SetStage(stage domain.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
	s.UpdatedAt = time.Now()
}

// Stage returns the current stage
func (s *RunState) Stage() domain.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// SetPlan stores the planner's output
func (s *RunState) SetPlan(plan *domain.SearchPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan
	s.UpdatedAt = time.Now()
}

// Plan returns the stored search plan
func (s *RunState) Plan() *domain.SearchPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}

// SetOutcomes stores the fan-out results
func (s *RunState) SetOutcomes(outcomes []domain.SearchOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = outcomes
	s.UpdatedAt = time.Now()
}

// Outcomes returns the collected search outcomes
func (s *RunState) Outcomes() []domain.SearchOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcomes
}

// SetDraft stores the writer's output
func (s *RunState) SetDraft(draft *domain.DraftReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = draft
	s.UpdatedAt = time.Now()
}

// Draft returns the writer's output
func (s *RunState) Draft() *domain.DraftReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// SetAudit stores the critic's findings
func (s *RunState) SetAudit(audit *domain.AuditFindings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = audit
	s.UpdatedAt = time.Now()
}

// Audit returns the critic's findings, nil when absent
func (s *RunState) Audit() *domain.AuditFindings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audit
}

// SetFinalReport stores the assembled report text
func (s *RunState) SetFinalReport(report string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalReport = report
	s.UpdatedAt = time.Now()
}

// FinalReport returns the assembled report text
func (s *RunState) FinalReport() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalReport
}

// MarkArtifactEmitted records the final-artifact emission. It returns false
// if the artifact was already emitted, so it can fire at most once per run.
func (s *RunState) MarkArtifactEmitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifactEmitted {
		return false
	}
	s.artifactEmitted = true
	s.UpdatedAt = time.Now()
	return true
}

// ArtifactEmitted reports whether the final artifact has been streamed
func (s *RunState) ArtifactEmitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifactEmitted
}
