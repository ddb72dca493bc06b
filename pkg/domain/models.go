package domain

import (
	"time"
)

// Role identifies which stage of the pipeline a completion call belongs to.
type Role string

const (
	RolePlanner   Role = "planner"
	RoleSearcher  Role = "searcher"
	RoleWriter    Role = "writer"
	RoleCritic    Role = "critic"
	RoleDeliverer Role = "deliverer"
)

// Stage represents the current stage of the research pipeline
type Stage string

const (
	StagePlanning   Stage = "planning"
	StageSearching  Stage = "searching"
	StageWriting    Stage = "writing"
	StageAuditing   Stage = "auditing"
	StageDelivering Stage = "delivering"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// RecencyTier is one step of the progressive relaxation retry ladder.
type RecencyTier string

const (
	TierQuarter      RecencyTier = "last 3 months"
	TierYear         RecencyTier = "last 12 months"
	TierUnrestricted RecencyTier = "no limit"
)

// Bounds for the per-request search count.
const (
	MinSearches     = 1
	MaxSearches     = 5
	DefaultSearches = 3
)

// ClampSearchCount bounds a requested search count to [MinSearches, MaxSearches].
// Zero (unset) maps to the default.
func ClampSearchCount(n int) int {
	if n == 0 {
		n = DefaultSearches
	}
	if n < MinSearches {
		return MinSearches
	}
	if n > MaxSearches {
		return MaxSearches
	}
	return n
}

// ResearchRequest represents one incoming research query
type ResearchRequest struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	NumSearches int       `json:"num_searches,omitempty"`
	SendEmail   bool      `json:"send_email,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SearchPlanItem is one planned web search
type SearchPlanItem struct {
	Query  string `json:"query"`
	Reason string `json:"reason"`
}

// SearchPlan is the planner's ordered list of searches, highest priority first
type SearchPlan struct {
	Searches []SearchPlanItem `json:"searches"`
}

// Clamp truncates the plan to at most n items.
func (p *SearchPlan) Clamp(n int) {
	if len(p.Searches) > n {
		p.Searches = p.Searches[:n]
	}
}

// SearchOutcome is the result of one executed search. Absence of an outcome
// for a plan item is a valid terminal state, not an error.
type SearchOutcome struct {
	Item    SearchPlanItem `json:"item"`
	Summary string         `json:"summary"`
	Tier    RecencyTier    `json:"tier"`
}

// DraftReport is the writer's output before audit and signature.
// MarkdownReport is append-only once signed.
type DraftReport struct {
	ShortSummary      string   `json:"short_summary"`
	MarkdownReport    string   `json:"markdown_report"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// Assumption records one unproven claim found by the critic
type Assumption struct {
	Claim            string `json:"claim"`
	Weakness         string `json:"weakness"`
	RequiredEvidence string `json:"required_evidence"`
}

// CapabilityClassification separates marketing claims from technical reality
type CapabilityClassification struct {
	Capability     string `json:"capability"`
	Classification string `json:"classification"`
	Reasoning      string `json:"reasoning"`
}

// MissingQuestion records a critical question the report did not answer
type MissingQuestion struct {
	Question   string `json:"question"`
	Importance string `json:"importance"`
}

// AgenticReadiness assesses agent and governance readiness of the reported system
type AgenticReadiness struct {
	AutonomousAgents  string `json:"autonomous_agents"`
	SecureExecution   string `json:"secure_execution"`
	ContextGovernance string `json:"context_governance"`
	MissingComponents string `json:"missing_components"`
}

// ConfidenceScore is the critic's 0-100 confidence with bullet explanations
type ConfidenceScore struct {
	Score       int      `json:"score"`
	Explanation []string `json:"explanation"`
}

// AuditFindings is the critic's structured critique of a draft report
type AuditFindings struct {
	UnprovenAssumptions       []Assumption               `json:"unproven_assumptions"`
	CapabilityClassifications []CapabilityClassification `json:"capability_classifications"`
	MissingQuestions          []MissingQuestion          `json:"missing_questions"`
	AgenticReadiness          AgenticReadiness           `json:"agentic_readiness"`
	ConfidenceScore           ConfidenceScore            `json:"confidence_score"`
	CriticalSummary           string                     `json:"critical_summary"`
}

// ProgressEvent is one unit of streamed pipeline output. Events are ordered,
// append-only, and never retracted. Exactly one event per run carries
// Final=true once the pipeline reaches the report-ready point.
type ProgressEvent struct {
	Text      string    `json:"text"`
	Final     bool      `json:"final"`
	Timestamp time.Time `json:"timestamp"`
}

// DeliveryStatus is the outcome class of the optional email stage
type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryError   DeliveryStatus = "error"
)

// DeliveryResult is the outcome of the optional email stage
type DeliveryResult struct {
	Status  DeliveryStatus `json:"status"`
	Message string         `json:"message,omitempty"`
}

// Message represents one chat message sent to the completion service
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall represents a tool invocation requested by the completion service
type ToolCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"arguments"`
}

// StageContext carries the per-invocation context explicitly instead of
// reading shared agent state: a correlation id, the role, and the role's
// instructions for this call.
type StageContext struct {
	TraceID      string `json:"trace_id"`
	Role         Role   `json:"role"`
	Instructions string `json:"instructions"`
}

// TokenUsage tracks token consumption of one completion call
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
