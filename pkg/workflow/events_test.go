package workflow

import (
	"strings"
	"testing"
)

func TestIsFinalArtifact(t *testing.T) {
	longBody := strings.Repeat("Widget adoption keeps growing across the industry. ", 25)

	tests := []struct {
		name  string
		chunk string
		want  bool
	}{
		{
			name:  "canonical heading",
			chunk: "# Report\n\nShort body.",
			want:  true,
		},
		{
			name:  "canonical heading with leading whitespace",
			chunk: "\n\n# Report\n\nbody",
			want:  true,
		},
		{
			name:  "status line",
			chunk: "**Starting research process...**\n\n",
			want:  false,
		},
		{
			name:  "long form with section markers",
			chunk: longBody + "\n## Overview\n" + longBody + "\n### Details\n",
			want:  true,
		},
		{
			name:  "long form with one marker only",
			chunk: longBody + "\n## Overview\n" + longBody,
			want:  false,
		},
		{
			name:  "long form with phrase markers",
			chunk: longBody + "\n**Query:** widgets\n" + longBody + "\n## Findings\n" + longBody,
			want:  true,
		},
		{
			name:  "short with section markers",
			chunk: "## A\n## B\ntiny",
			want:  false,
		},
		{
			name:  "empty",
			chunk: "",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFinalArtifact(tt.chunk); got != tt.want {
				t.Errorf("IsFinalArtifact() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountSectionMarkers(t *testing.T) {
	s := "## One\ntext\n### Two\n#### NotCounted\n# NotCounted\n  ## Indented\n"
	if got := countSectionMarkers(s); got != 3 {
		t.Errorf("countSectionMarkers() = %d, want 3", got)
	}
}
