package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Aputze/deep-research/pkg/domain"
)

// scriptedSearcher returns canned responses per attempt, keyed by the plan
// item's query.
type scriptedSearcher struct {
	mu        sync.Mutex
	responses map[string][]searchAttempt
	calls     map[string]int
}

type searchAttempt struct {
	summary string
	err     error
}

func newScriptedSearcher() *scriptedSearcher {
	return &scriptedSearcher{
		responses: make(map[string][]searchAttempt),
		calls:     make(map[string]int),
	}
}

func (s *scriptedSearcher) script(query string, attempts ...searchAttempt) {
	s.responses[query] = attempts
}

func (s *scriptedSearcher) Search(ctx context.Context, traceID, input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for query, attempts := range s.responses {
		if strings.Contains(input, "Search term: "+query) {
			n := s.calls[query]
			s.calls[query]++
			if n >= len(attempts) {
				return "", errors.New("unscripted attempt")
			}
			return attempts[n].summary, attempts[n].err
		}
	}
	return "", errors.New("unknown query")
}

func (s *scriptedSearcher) callCount(query string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[query]
}

func plan(items ...domain.SearchPlanItem) *domain.SearchPlan {
	return &domain.SearchPlan{Searches: items}
}

var goodSummary = strings.Repeat("Solid finding about the topic. ", 4)

func TestExecuteAcceptsFirstTier(t *testing.T) {
	searcher := newScriptedSearcher()
	searcher.script("latest widgets", searchAttempt{summary: goodSummary})

	engine := NewSearchEngine(searcher, nil, nil, 50)
	outcomes := engine.Execute(context.Background(), "trace-1", plan(
		domain.SearchPlanItem{Query: "latest widgets", Reason: "core"},
	))

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Tier != domain.TierQuarter {
		t.Errorf("expected first tier, got %s", outcomes[0].Tier)
	}
	if searcher.callCount("latest widgets") != 1 {
		t.Errorf("expected 1 attempt, got %d", searcher.callCount("latest widgets"))
	}
}

func TestProgressiveRelaxationReachesFinalTier(t *testing.T) {
	thirdTier := strings.Repeat("Found older but relevant sources on this topic now.", 2)[:80]

	searcher := newScriptedSearcher()
	searcher.script("latest widgets",
		searchAttempt{summary: "could not find recent sources " + goodSummary},
		searchAttempt{summary: "could not find recent sources " + goodSummary},
		searchAttempt{summary: thirdTier},
	)

	engine := NewSearchEngine(searcher, nil, nil, 50)
	outcomes := engine.Execute(context.Background(), "trace-1", plan(
		domain.SearchPlanItem{Query: "latest widgets", Reason: "core"},
	))

	if len(outcomes) != 1 {
		t.Fatalf("expected third-tier outcome, got %d outcomes", len(outcomes))
	}
	if outcomes[0].Tier != domain.TierUnrestricted {
		t.Errorf("expected unrestricted tier, got %s", outcomes[0].Tier)
	}
	if outcomes[0].Summary != thirdTier {
		t.Errorf("unexpected summary: %q", outcomes[0].Summary)
	}
}

func TestFinalTierAcceptedUnconditionally(t *testing.T) {
	searcher := newScriptedSearcher()
	searcher.script("latest widgets",
		searchAttempt{err: errors.New("search failed")},
		searchAttempt{summary: "short"},
		searchAttempt{summary: "no relevant sources found even without date limits"},
	)

	engine := NewSearchEngine(searcher, nil, nil, 50)
	outcomes := engine.Execute(context.Background(), "trace-1", plan(
		domain.SearchPlanItem{Query: "latest widgets", Reason: "core"},
	))

	// Even an "insufficient" final-tier response is an outcome.
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Tier != domain.TierUnrestricted {
		t.Errorf("expected unrestricted tier, got %s", outcomes[0].Tier)
	}
}

func TestFinalTierFailureYieldsAbsentOutcome(t *testing.T) {
	searcher := newScriptedSearcher()
	searcher.script("latest widgets",
		searchAttempt{err: errors.New("boom")},
		searchAttempt{err: errors.New("boom")},
		searchAttempt{err: errors.New("boom")},
	)

	engine := NewSearchEngine(searcher, nil, nil, 50)
	outcomes := engine.Execute(context.Background(), "trace-1", plan(
		domain.SearchPlanItem{Query: "latest widgets", Reason: "core"},
	))

	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
	if searcher.callCount("latest widgets") != 3 {
		t.Errorf("expected 3 attempts, got %d", searcher.callCount("latest widgets"))
	}
}

func TestSiblingIsolation(t *testing.T) {
	searcher := newScriptedSearcher()
	searcher.script("failing query",
		searchAttempt{err: errors.New("boom")},
		searchAttempt{err: errors.New("boom")},
		searchAttempt{err: errors.New("boom")},
	)
	searcher.script("healthy query", searchAttempt{summary: goodSummary})
	searcher.script("second healthy query", searchAttempt{summary: goodSummary})

	engine := NewSearchEngine(searcher, nil, nil, 50)
	outcomes := engine.Execute(context.Background(), "trace-1", plan(
		domain.SearchPlanItem{Query: "failing query", Reason: "r"},
		domain.SearchPlanItem{Query: "healthy query", Reason: "r"},
		domain.SearchPlanItem{Query: "second healthy query", Reason: "r"},
	))

	// One permanent per-item failure drops exactly that item.
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	seen := map[string]bool{}
	for _, o := range outcomes {
		seen[o.Item.Query] = true
	}
	if !seen["healthy query"] || !seen["second healthy query"] {
		t.Errorf("sibling outcomes missing: %v", seen)
	}
}

func TestExecuteEmptyPlan(t *testing.T) {
	engine := NewSearchEngine(newScriptedSearcher(), nil, nil, 50)

	if outcomes := engine.Execute(context.Background(), "trace-1", nil); len(outcomes) != 0 {
		t.Errorf("expected no outcomes for nil plan")
	}
	if outcomes := engine.Execute(context.Background(), "trace-1", plan()); len(outcomes) != 0 {
		t.Errorf("expected no outcomes for empty plan")
	}
}

func TestBuildSearchInput(t *testing.T) {
	item := domain.SearchPlanItem{Query: "latest widgets", Reason: "core topic"}

	constrained := buildSearchInput(item, domain.TierQuarter)
	if !strings.Contains(constrained, "latest widgets last 3 months") {
		t.Errorf("tier constraint missing from query: %q", constrained)
	}
	if !strings.Contains(constrained, "sources from the 3 months") {
		t.Errorf("range name missing: %q", constrained)
	}

	unrestricted := buildSearchInput(item, domain.TierUnrestricted)
	if !strings.Contains(unrestricted, "without date restrictions") {
		t.Errorf("unrestricted guidance missing: %q", unrestricted)
	}
	if strings.Contains(unrestricted, "no limit") {
		t.Errorf("tier label must not leak into unrestricted query: %q", unrestricted)
	}
}

func TestIsSufficient(t *testing.T) {
	engine := NewSearchEngine(newScriptedSearcher(), nil, nil, 50)

	tests := []struct {
		name    string
		summary string
		want    bool
	}{
		{"empty", "", false},
		{"whitespace", "   \n  ", false},
		{"too short", "brief", false},
		{"insufficient phrase", "Unfortunately no relevant sources were located despite a broad sweep of the web.", false},
		{"phrase case insensitive", "COULD NOT FIND anything recent although the search covered many source types.", false},
		{"good", goodSummary, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.isSufficient(tt.summary); got != tt.want {
				t.Errorf("isSufficient(%q) = %v, want %v", tt.summary, got, tt.want)
			}
		})
	}
}
