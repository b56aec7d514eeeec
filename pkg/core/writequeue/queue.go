// Package writequeue implements the single-worker, priority-ordered,
// batched writer of SPEC_FULL.md §4.8. Its single-long-lived-goroutine
// shape and fire-and-forget persistence style are grounded on the
// reference codebase's pkg/core/debate/orchestrator.go, which runs its
// broadcast/persistence loop the same way: one goroutine for the life of
// the component, not one per request.
package writequeue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bhsi/pkg/models"
)

// Sink performs the actual warehouse writes. warehouse.Store satisfies this
// narrowed interface; tests use a stub.
type Sink interface {
	InsertRawDocs(ctx context.Context, docs []models.RawDoc) error
	UpsertEvents(ctx context.Context, events []models.Event) error
}

// Status is the snapshot returned by Queue.Status().
type Status struct {
	Pending    int
	ByPriority map[models.WritePriority]int
	ByTable    map[string]int
}

// Queue is an in-memory queue of WriteRequests drained by a single
// background worker on a periodic tick. The pending list has no size limit:
// Enqueue never blocks or rejects a request.
type Queue struct {
	sink Sink
	tick time.Duration

	mu      sync.Mutex
	pending []models.WriteRequest

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New constructs a Queue. tick defaults to 5s (SPEC_FULL.md §4.8) when <= 0.
func New(sink Sink, tick time.Duration) *Queue {
	if tick <= 0 {
		tick = 5 * time.Second
	}
	return &Queue{sink: sink, tick: tick, stop: make(chan struct{}), done: make(chan struct{})}
}

// NewRawDocsRequest builds the priority-3 {raw_docs: insert} WriteRequest of
// Pipeline step 4 (SPEC_FULL.md §4.12). Each request gets a fresh UUID so
// that two requests enqueued for the same company in the same tick never
// collide in logs or in a future idempotency check.
func NewRawDocsRequest(correlation string, docs []models.RawDoc) models.WriteRequest {
	rows := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, map[string]any{"_doc": d})
	}
	return models.WriteRequest{RequestID: requestIDFor(correlation), Table: "raw_docs", Rows: rows, Operation: models.OpInsert, Priority: models.PriorityLow}
}

// NewEventsRequest builds the priority-2 {events: insert} WriteRequest of
// Pipeline step 4.
func NewEventsRequest(correlation string, events []models.Event) models.WriteRequest {
	rows := make([]map[string]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, map[string]any{"_event": e})
	}
	return models.WriteRequest{RequestID: requestIDFor(correlation), Table: "events", Rows: rows, Operation: models.OpInsert, Priority: models.PriorityMedium}
}

// requestIDFor prefixes a fresh UUID with the triggering company name so the
// ID is both unique and traceable back to its originating search.
func requestIDFor(correlation string) string {
	if correlation == "" {
		return uuid.New().String()
	}
	return correlation + ":" + uuid.New().String()
}

// Enqueue adds req to the pending list, auto-populating created_at/updated_at
// on its rows. Enqueue is O(1).
func (q *Queue) Enqueue(req models.WriteRequest) {
	now := time.Now()
	for _, row := range req.Rows {
		if _, ok := row["created_at"]; !ok {
			row["created_at"] = now
		}
		row["updated_at"] = now
	}

	q.mu.Lock()
	q.pending = append(q.pending, req)
	q.mu.Unlock()
}

// Start launches the single worker goroutine. It is idempotent: calling
// Start twice on a running Queue is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go q.run(ctx)
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	ticker := time.NewTicker(q.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.drainOnce(context.Background())
			return
		case <-q.stop:
			q.drainOnce(context.Background())
			return
		case <-ticker.C:
			q.drainOnce(ctx)
		}
	}
}

// Flush drains the queue immediately, outside the regular tick, and returns
// how many requests it processed.
func (q *Queue) Flush(ctx context.Context) int {
	return q.drainOnce(ctx)
}

// drainOnce pops the entire pending list, sorts it priority-then-FIFO, and
// executes each request in that order (SPEC_FULL.md §5 "strictly higher
// priorities before lower ... within one tick ... inside a priority class,
// order is FIFO").
func (q *Queue) drainOnce(ctx context.Context) int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	ordered := stableSortByPriority(batch)
	for _, req := range ordered {
		if err := q.execute(ctx, req); err != nil {
			fmt.Printf("[WRITEQUEUE] request %s on %s failed, dropping: %v\n", req.RequestID, req.Table, err)
		}
	}
	return len(ordered)
}

func stableSortByPriority(reqs []models.WriteRequest) []models.WriteRequest {
	buckets := map[models.WritePriority][]models.WriteRequest{}
	for _, r := range reqs {
		buckets[r.Priority] = append(buckets[r.Priority], r)
	}
	out := make([]models.WriteRequest, 0, len(reqs))
	for _, p := range []models.WritePriority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		out = append(out, buckets[p]...)
	}
	return out
}

func (q *Queue) execute(ctx context.Context, req models.WriteRequest) error {
	switch req.Table {
	case "raw_docs":
		docs := make([]models.RawDoc, 0, len(req.Rows))
		for _, row := range req.Rows {
			if d, ok := row["_doc"].(models.RawDoc); ok {
				docs = append(docs, d)
			}
		}
		return q.sink.InsertRawDocs(ctx, docs)
	case "events":
		events := make([]models.Event, 0, len(req.Rows))
		for _, row := range req.Rows {
			if e, ok := row["_event"].(models.Event); ok {
				events = append(events, e)
			}
		}
		return q.sink.UpsertEvents(ctx, events)
	default:
		return fmt.Errorf("writequeue: unknown table %q", req.Table)
	}
}

// Status reports the current pending composition, by priority and by table.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := Status{Pending: len(q.pending), ByPriority: map[models.WritePriority]int{}, ByTable: map[string]int{}}
	for _, r := range q.pending {
		st.ByPriority[r.Priority]++
		st.ByTable[r.Table]++
	}
	return st
}

// Shutdown stops the worker, draining the queue once more before returning.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	close(q.stop)
	<-q.done
}
