package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Aputze/deep-research/pkg/domain"
	"github.com/Aputze/deep-research/pkg/observability"
)

// searchInvoker is the slice of the stage invoker the fan-out engine needs.
type searchInvoker interface {
	Search(ctx context.Context, traceID, input string) (string, error)
}

// recencyTiers is the fixed relaxation ladder, tightest first.
var recencyTiers = []domain.RecencyTier{
	domain.TierQuarter,
	domain.TierYear,
	domain.TierUnrestricted,
}

// insufficientPhrases mark a summary as unusable at a non-final tier.
var insufficientPhrases = []string{
	"no recent information found",
	"no information found",
	"insufficient results",
	"no relevant sources",
	"could not find",
}

// SearchEngine executes a search plan: every item fans out into its own
// goroutine, each item walks the relaxation ladder independently, and
// outcomes are joined in completion order. An item that exhausts the ladder
// is silently omitted; it never aborts its siblings.
type SearchEngine struct {
	invoker          searchInvoker
	telemetry        *observability.Telemetry
	metrics          *observability.Metrics
	logger           *observability.StructuredLogger
	minSummaryLength int
}

// NewSearchEngine creates a fan-out engine. minSummaryLength below 1 falls
// back to the default sufficiency threshold.
func NewSearchEngine(invoker searchInvoker, telemetry *observability.Telemetry, metrics *observability.Metrics, minSummaryLength int) *SearchEngine {
	if minSummaryLength < 1 {
		minSummaryLength = 50
	}
	return &SearchEngine{
		invoker:          invoker,
		telemetry:        telemetry,
		metrics:          metrics,
		logger:           observability.NewStructuredLogger("workflow.searches"),
		minSummaryLength: minSummaryLength,
	}
}

// Execute runs all plan items concurrently and returns the successful
// outcomes in completion order. The returned slice is at most plan-sized;
// callers must not assume alignment with the plan.
func (e *SearchEngine) Execute(ctx context.Context, traceID string, plan *domain.SearchPlan) []domain.SearchOutcome {
	if plan == nil || len(plan.Searches) == 0 {
		return nil
	}

	results := make(chan *domain.SearchOutcome, len(plan.Searches))
	var wg sync.WaitGroup

	// Launch every item before collecting anything.
	for _, item := range plan.Searches {
		wg.Add(1)
		go func(item domain.SearchPlanItem) {
			defer wg.Done()
			if e.metrics != nil {
				e.metrics.SearchStarted()
				defer e.metrics.SearchFinished()
			}
			results <- e.searchItem(ctx, traceID, item)
		}(item)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]domain.SearchOutcome, 0, len(plan.Searches))
	for outcome := range results {
		if outcome != nil {
			outcomes = append(outcomes, *outcome)
		} else if e.metrics != nil {
			e.metrics.RecordSearchDropped(ctx)
		}
	}

	e.logger.Info(ctx, "search fan-out finished", map[string]interface{}{
		"planned":   len(plan.Searches),
		"collected": len(outcomes),
	})

	return outcomes
}

// searchItem walks one plan item down the relaxation ladder. Nil means the
// item produced no usable outcome.
func (e *SearchEngine) searchItem(ctx context.Context, traceID string, item domain.SearchPlanItem) *domain.SearchOutcome {
	for i, tier := range recencyTiers {
		finalTier := i == len(recencyTiers)-1

		input := buildSearchInput(item, tier)

		var summary string
		var err error
		if e.telemetry != nil {
			err = e.telemetry.InstrumentSearch(ctx, item.Query, string(tier), func(ctx context.Context) error {
				summary, err = e.invoker.Search(ctx, traceID, input)
				return err
			})
		} else {
			summary, err = e.invoker.Search(ctx, traceID, input)
		}

		if err != nil {
			// A failed final attempt means the item has no outcome. Earlier
			// failures just relax to the next tier.
			if finalTier {
				e.logger.Warn(ctx, "search exhausted all tiers", map[string]interface{}{
					"query": item.Query,
					"error": err.Error(),
				})
				return nil
			}
			e.logger.Debug(ctx, "search attempt failed, relaxing tier", map[string]interface{}{
				"query": item.Query,
				"tier":  string(tier),
			})
			continue
		}

		sufficient := e.isSufficient(summary)
		if e.metrics != nil {
			e.metrics.RecordSearchAttempt(ctx, string(tier), sufficient)
		}

		// The last tier is accepted no matter what it says.
		if sufficient || finalTier {
			return &domain.SearchOutcome{
				Item:    item,
				Summary: summary,
				Tier:    tier,
			}
		}

		e.logger.Debug(ctx, "insufficient results, relaxing tier", map[string]interface{}{
			"query": item.Query,
			"tier":  string(tier),
		})
	}

	return nil
}

// isSufficient judges whether a summary is usable at a non-final tier.
func (e *SearchEngine) isSufficient(summary string) bool {
	stripped := strings.TrimSpace(summary)
	if len(stripped) <= e.minSummaryLength {
		return false
	}

	lowered := strings.ToLower(stripped)
	for _, phrase := range insufficientPhrases {
		if strings.Contains(lowered, phrase) {
			return false
		}
	}

	return true
}

// buildSearchInput renders the user prompt for one attempt at one tier.
func buildSearchInput(item domain.SearchPlanItem, tier domain.RecencyTier) string {
	if tier == domain.TierUnrestricted {
		return fmt.Sprintf(
			"Search term: %s\nReason for searching: %s\n\nIMPORTANT: Search without date restrictions. Use any relevant sources found, even if older. Explicitly note in your summary that recent information was limited.",
			item.Query, item.Reason)
	}

	rangeName := strings.TrimPrefix(string(tier), "last ")
	return fmt.Sprintf(
		"Search term: %s %s\nReason for searching: %s\n\nIMPORTANT: Focus on finding sources from the %s. If you find sufficient relevant results (2+ sources), provide your summary. If results are insufficient, indicate this clearly in your response.",
		item.Query, tier, item.Reason, rangeName)
}
