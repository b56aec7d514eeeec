// Package sources implements one SourceAdapter per backend (BOE, NewsAPI,
// eight RSS outlets, Yahoo Finance) behind a single uniform interface, plus
// the Orchestrator that fans a query out across whichever subset is
// enabled (SPEC_FULL.md §4.2, §4.6, §9 "Dynamic dispatch over sources").
package sources

import (
	"context"
	"time"

	"bhsi/pkg/models"
)

// Window is a date-window request: either an explicit [start,end] pair or a
// days_back count. Adapters MUST resolve this to an inclusive range before
// fetching (SPEC_FULL.md §4.2).
type Window struct {
	StartDate string // YYYY-MM-DD, optional
	EndDate   string // YYYY-MM-DD, optional
	DaysBack  int    // >=1, optional
}

// Resolve turns Window into a concrete [start,end] range, falling back to
// defaultDays when neither an explicit range nor days_back was given.
func (w Window) Resolve(defaultDays int) (start, end time.Time) {
	now := time.Now().UTC()

	if w.StartDate != "" || w.EndDate != "" {
		s, errS := time.Parse("2006-01-02", w.StartDate)
		e, errE := time.Parse("2006-01-02", w.EndDate)
		if errS != nil {
			s = now.AddDate(0, 0, -defaultDays)
		}
		if errE != nil {
			e = now
		}
		return s, e
	}

	days := w.DaysBack
	if days <= 0 {
		days = defaultDays
	}
	return now.AddDate(0, 0, -days), now
}

// Adapter is the single capability every source provides: search. Output
// records are uniform in shape; the payload's heterogeneity lives in
// Record.Extra, not in the interface (SPEC_FULL.md §9).
type Adapter interface {
	Name() models.Source
	Search(ctx context.Context, query string, window Window) models.SourceResult
}

// errResult builds the {summary.errors: [msg], records: []} shape an
// adapter returns when it fails without aborting the overall search
// (SPEC_FULL.md §4.2 "Failure semantics").
func errResult(source models.Source, query string, msg string) models.SourceResult {
	return models.SourceResult{
		Summary: models.SourceSummary{Query: query, Source: source, Errors: []string{msg}},
	}
}
