package workflow

import (
	"strings"
	"time"

	"github.com/Aputze/deep-research/pkg/domain"
	"github.com/Aputze/deep-research/pkg/report"
)

// Thresholds for classifying a streamed chunk as the final report rather
// than a status update. Consumers rely on these exact values.
const (
	artifactMinLength  = 1000
	artifactMinMarkers = 2
)

// IsFinalArtifact reports whether a streamed chunk is the report itself
// rather than a status line. A chunk is the final artifact when it starts
// with the canonical heading, or when it is long-form and carries either
// multiple section markers or the known report phrase markers.
func IsFinalArtifact(chunk string) bool {
	stripped := strings.TrimSpace(chunk)

	if strings.HasPrefix(stripped, report.CanonicalHeading) {
		return true
	}

	if len(stripped) <= artifactMinLength {
		return false
	}

	if countSectionMarkers(stripped) >= artifactMinMarkers {
		return true
	}

	return strings.Contains(stripped, "**Query:**") && strings.Contains(stripped, "## Findings")
}

// countSectionMarkers counts level-2 and level-3 markdown headings at line
// starts.
func countSectionMarkers(s string) int {
	count := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "### ") || (strings.HasPrefix(trimmed, "## ") && !strings.HasPrefix(trimmed, "###")) {
			count++
		}
	}
	return count
}

// statusEvent builds a non-final progress event.
func statusEvent(text string) domain.ProgressEvent {
	return domain.ProgressEvent{
		Text:      text,
		Timestamp: time.Now(),
	}
}

// artifactEvent builds the single final-artifact event of a run.
func artifactEvent(text string) domain.ProgressEvent {
	return domain.ProgressEvent{
		Text:      text,
		Final:     true,
		Timestamp: time.Now(),
	}
}
