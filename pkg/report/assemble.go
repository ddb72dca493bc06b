// Package report assembles the final research artifact: normalized heading,
// optional audit section, and a signature block. Assembly is pure; the same
// inputs always produce the same bytes.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aputze/deep-research/pkg/domain"
)

// CanonicalHeading is the required first heading of every assembled report.
const CanonicalHeading = "# Report"

// Options carries the assembly inputs that are not part of the draft itself.
type Options struct {
	Query string
	Model string
	Now   time.Time
}

// NormalizeHeading prepends the canonical heading unless the body already
// starts with it.
func NormalizeHeading(body string) string {
	if strings.HasPrefix(strings.TrimSpace(body), CanonicalHeading) {
		return body
	}
	return CanonicalHeading + "\n\n" + body
}

// Assemble produces the final report: normalized draft body, the audit
// section when findings are present, and the signature block. The draft is
// not modified.
func Assemble(draft *domain.DraftReport, audit *domain.AuditFindings, opts Options) string {
	body := NormalizeHeading(draft.MarkdownReport)

	if audit != nil {
		body = body + "\n\n" + FormatAudit(audit)
	}

	return body + Signature(opts)
}

// FormatAudit renders the critic's findings as a markdown section.
func FormatAudit(audit *domain.AuditFindings) string {
	var b strings.Builder

	b.WriteString("\n---\n\n")
	b.WriteString("## Critical Audit Report\n\n")
	b.WriteString("### Overall Assessment\n")
	b.WriteString(audit.CriticalSummary)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "### Confidence Score: %d/100\n\n", audit.ConfidenceScore.Score)
	for _, point := range audit.ConfidenceScore.Explanation {
		fmt.Fprintf(&b, "- %s\n", point)
	}
	b.WriteString("\n")

	b.WriteString("### Unproven Assumptions\n\n")
	for i, assumption := range audit.UnprovenAssumptions {
		fmt.Fprintf(&b, "**Assumption %d:**\n", i+1)
		fmt.Fprintf(&b, "- **Claim:** %s\n", assumption.Claim)
		fmt.Fprintf(&b, "- **Weakness:** %s\n", assumption.Weakness)
		fmt.Fprintf(&b, "- **Required Evidence:** %s\n\n", assumption.RequiredEvidence)
	}

	b.WriteString("### Marketing Claims vs Technical Reality\n\n")
	for i, classification := range audit.CapabilityClassifications {
		fmt.Fprintf(&b, "**Capability %d: %s**\n", i+1, classification.Capability)
		fmt.Fprintf(&b, "- **Classification:** %s\n", classification.Classification)
		fmt.Fprintf(&b, "- **Reasoning:** %s\n\n", classification.Reasoning)
	}

	b.WriteString("### Missing Critical Questions\n\n")
	for i, question := range audit.MissingQuestions {
		fmt.Fprintf(&b, "**Question %d: %s**\n", i+1, question.Question)
		fmt.Fprintf(&b, "- **Importance:** %s\n\n", question.Importance)
	}

	b.WriteString("### Agentic & MCP Readiness Assessment\n\n")
	fmt.Fprintf(&b, "**Autonomous Agents Support:**\n%s\n\n", audit.AgenticReadiness.AutonomousAgents)
	fmt.Fprintf(&b, "**Secure Execution:**\n%s\n\n", audit.AgenticReadiness.SecureExecution)
	fmt.Fprintf(&b, "**Context Governance:**\n%s\n\n", audit.AgenticReadiness.ContextGovernance)
	fmt.Fprintf(&b, "**Missing Components:**\n%s\n\n", audit.AgenticReadiness.MissingComponents)
	b.WriteString("---\n")

	return b.String()
}

// Signature renders the report signature block with run metadata.
func Signature(opts Options) string {
	model := opts.Model
	if model == "" {
		model = "unknown"
	}

	var b strings.Builder

	b.WriteString("\n\n---\n\n")
	b.WriteString("## Report Signature\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n\n", opts.Now.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Research Request:** %s\n\n", opts.Query)
	b.WriteString("**Agents Used:**\n")
	b.WriteString("- Planner Agent (search strategy planning)\n")
	b.WriteString("- Search Agent (web research with progressive date filtering)\n")
	b.WriteString("- Writer Agent (report synthesis)\n")
	b.WriteString("- Critic Agent (critical audit and validation)\n")
	b.WriteString("- Email Agent (report delivery)\n\n")
	b.WriteString("**Tools Used:**\n")
	b.WriteString("- Web Search (progressive date filtering: 3 months -> 12 months -> no limit)\n")
	b.WriteString("- Mailjet Email API\n\n")
	b.WriteString("**Models Used:**\n")
	fmt.Fprintf(&b, "- %s (all agents)\n\n", model)
	b.WriteString("---\n\n")
	b.WriteString("*Report generated by Deep Research*\n")

	return b.String()
}
