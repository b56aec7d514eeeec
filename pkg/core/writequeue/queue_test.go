package writequeue

import (
	"context"
	"sync"
	"testing"
	"time"

	"bhsi/pkg/models"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSink) InsertRawDocs(ctx context.Context, docs []models.RawDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "raw_docs")
	return nil
}

func (s *recordingSink) UpsertEvents(ctx context.Context, events []models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "events")
	return nil
}

func TestPriorityOrderingWithinOneDrain(t *testing.T) {
	sink := &recordingSink{}
	q := New(sink, time.Hour)

	// Enqueue low priority first, high priority second: drain must still
	// execute high before low (SPEC_FULL.md §8 WriteQueue priority invariant).
	q.Enqueue(NewRawDocsRequest("r1", []models.RawDoc{{RawID: "a"}})) // priority 3
	q.Enqueue(NewEventsRequest("r2", []models.Event{{EventID: "BOE:a"}})) // priority 2

	n := q.Flush(context.Background())
	if n != 2 {
		t.Fatalf("expected 2 requests drained, got %d", n)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.calls) != 2 || sink.calls[0] != "events" || sink.calls[1] != "raw_docs" {
		t.Errorf("expected events (priority 2) before raw_docs (priority 3), got %v", sink.calls)
	}
}

func TestFlushOnEmptyQueueIsNoop(t *testing.T) {
	q := New(&recordingSink{}, time.Hour)
	if n := q.Flush(context.Background()); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestStatusReportsPendingByPriorityAndTable(t *testing.T) {
	q := New(&recordingSink{}, time.Hour)
	q.Enqueue(NewRawDocsRequest("r1", []models.RawDoc{{RawID: "a"}}))
	q.Enqueue(NewEventsRequest("r2", []models.Event{{EventID: "BOE:a"}}))

	st := q.Status()
	if st.Pending != 2 {
		t.Errorf("expected 2 pending, got %d", st.Pending)
	}
	if st.ByTable["raw_docs"] != 1 || st.ByTable["events"] != 1 {
		t.Errorf("unexpected by-table breakdown: %+v", st.ByTable)
	}
}

func TestStartIsIdempotentAndShutdownDrains(t *testing.T) {
	sink := &recordingSink{}
	q := New(sink, 10*time.Millisecond)
	ctx := context.Background()

	q.Start(ctx)
	q.Start(ctx) // must not spawn a second worker

	q.Enqueue(NewRawDocsRequest("r1", []models.RawDoc{{RawID: "a"}}))
	q.Shutdown()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.calls) != 1 {
		t.Errorf("expected shutdown to drain the pending request, got %v", sink.calls)
	}
}
