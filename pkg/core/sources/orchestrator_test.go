package sources

import (
	"context"
	"testing"
	"time"

	"bhsi/pkg/models"
)

type fakeAdapter struct {
	name  models.Source
	fn    func(ctx context.Context, query string, window Window) models.SourceResult
}

func (f fakeAdapter) Name() models.Source { return f.name }
func (f fakeAdapter) Search(ctx context.Context, query string, window Window) models.SourceResult {
	return f.fn(ctx, query, window)
}

func TestOrchestratorIsolatesOneAdapterFailureFromOthers(t *testing.T) {
	good := fakeAdapter{name: models.SourceBOE, fn: func(ctx context.Context, query string, w Window) models.SourceResult {
		return models.SourceResult{Summary: models.SourceSummary{Source: models.SourceBOE, TotalResults: 1}}
	}}
	panicking := fakeAdapter{name: models.SourceNewsAPI, fn: func(ctx context.Context, query string, w Window) models.SourceResult {
		panic("boom")
	}}

	o := NewOrchestrator([]Adapter{good, panicking}, time.Second)
	results := o.Search(context.Background(), "Ejemplo SA", Window{})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(results[models.SourceBOE].Summary.Errors) != 0 {
		t.Error("expected the healthy adapter's result to carry no errors")
	}
	if len(results[models.SourceNewsAPI].Summary.Errors) == 0 {
		t.Error("expected the panicking adapter's result to surface an error instead of crashing the run")
	}
}

func TestOrchestratorEnforcesPerTaskTimeout(t *testing.T) {
	slow := fakeAdapter{name: models.SourceBOE, fn: func(ctx context.Context, query string, w Window) models.SourceResult {
		select {
		case <-time.After(time.Second):
			return models.SourceResult{}
		case <-ctx.Done():
			return models.SourceResult{}
		}
	}}

	o := NewOrchestrator([]Adapter{slow}, 10*time.Millisecond)
	start := time.Now()
	results := o.Search(context.Background(), "x", Window{})
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("expected orchestrator to return promptly after per-task timeout, took %v", time.Since(start))
	}
	if len(results[models.SourceBOE].Summary.Errors) == 0 {
		t.Error("expected a timed-out adapter to surface an error")
	}
}
