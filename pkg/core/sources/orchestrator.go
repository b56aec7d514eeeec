package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bhsi/pkg/models"
)

// Orchestrator fans a single query out across every enabled Adapter
// concurrently, isolating each adapter's panics/timeouts so one broken
// source never blocks the others (SPEC_FULL.md §4.6). It performs no
// classification: that belongs to the classify package (SPEC_FULL.md §9).
type Orchestrator struct {
	adapters    []Adapter
	perTaskWait time.Duration
}

func NewOrchestrator(adapters []Adapter, perTaskWait time.Duration) *Orchestrator {
	if perTaskWait <= 0 {
		perTaskWait = 20 * time.Second
	}
	return &Orchestrator{adapters: adapters, perTaskWait: perTaskWait}
}

// Search runs every adapter concurrently and returns one models.SourceResult
// per source, keyed by source identity, regardless of individual failures.
func (o *Orchestrator) Search(ctx context.Context, query string, window Window) map[models.Source]models.SourceResult {
	results := make(map[models.Source]models.SourceResult, len(o.adapters))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, adapter := range o.adapters {
		adapter := adapter
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := o.runOne(ctx, adapter, query, window)
			mu.Lock()
			results[adapter.Name()] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// runOne isolates a single adapter call: recovers panics and bounds
// execution to perTaskWait, so a hung or crashing adapter degrades to an
// errored SourceResult rather than taking down the fan-out.
func (o *Orchestrator) runOne(ctx context.Context, adapter Adapter, query string, window Window) (result models.SourceResult) {
	taskCtx, cancel := context.WithTimeout(ctx, o.perTaskWait)
	defer cancel()

	done := make(chan models.SourceResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errResult(adapter.Name(), query, fmt.Sprintf("panic: %v", r))
			}
		}()
		done <- adapter.Search(taskCtx, query, window)
	}()

	select {
	case result = <-done:
		return result
	case <-taskCtx.Done():
		return errResult(adapter.Name(), query, "timed out")
	}
}
