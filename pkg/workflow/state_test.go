package workflow

import (
	"sync"
	"testing"

	"github.com/Aputze/deep-research/pkg/domain"
)

func TestRunStateStageTransitions(t *testing.T) {
	state := NewRunState(domain.ResearchRequest{Query: "q"}, "trace-1")

	if state.Stage() != domain.StagePlanning {
		t.Errorf("new run must start in planning, got %s", state.Stage())
	}

	state.SetStage(domain.StageSearching)
	if state.Stage() != domain.StageSearching {
		t.Errorf("stage not updated, got %s", state.Stage())
	}
}

func TestMarkArtifactEmittedFiresOnce(t *testing.T) {
	state := NewRunState(domain.ResearchRequest{Query: "q"}, "trace-1")

	if state.ArtifactEmitted() {
		t.Fatal("artifact flagged before emission")
	}

	var wg sync.WaitGroup
	fired := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fired <- state.MarkArtifactEmitted()
		}()
	}
	wg.Wait()
	close(fired)

	count := 0
	for ok := range fired {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("artifact emission guard fired %d times, want 1", count)
	}
	if !state.ArtifactEmitted() {
		t.Error("artifact not flagged after emission")
	}
}
