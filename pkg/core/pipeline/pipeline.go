// Package pipeline coordinates one user-initiated search end to end:
// CacheTier -> Orchestrator -> HybridClassifier -> WriteQueue (+ optional
// VectorStore embedding) -> response envelope (SPEC_FULL.md §4.12). It is
// constructed explicitly via New, never through a package-level singleton
// (SPEC_FULL.md §9 "cyclic configuration").
package pipeline

import (
	"context"
	"fmt"
	"time"

	"bhsi/pkg/core/assessment"
	"bhsi/pkg/core/cache"
	"bhsi/pkg/core/classify"
	"bhsi/pkg/core/hashid"
	"bhsi/pkg/core/sources"
	"bhsi/pkg/core/writequeue"
	"bhsi/pkg/models"
)

// Embedder is the capability needed for the optional embedding step.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorAdder is the capability needed to persist embedded documents.
type VectorAdder interface {
	Add(ctx context.Context, eventID string, vec []float32, metadata map[string]string, document string, v models.Vector) error
}

// Config controls per-call pipeline behavior (SPEC_FULL.md §4.12 step 5).
type Config struct {
	EnableEmbedding       bool
	MaxDocumentsToEmbed   int
	EmbedRiskThreshold    models.RiskLabel
	DaysBackDefault       int
}

// Pipeline is the end-to-end coordinator. All dependencies are injected.
type Pipeline struct {
	cfg          Config
	cacheTier    *cache.Tier
	orchestrator *sources.Orchestrator
	classifier   *classify.Hybrid
	queue        *writequeue.Queue
	vectors      VectorAdder
	embedder     Embedder
	scorer       *assessment.Scorer
}

// New wires the pipeline's collaborators, all passed explicitly (SPEC_FULL.md
// §4.12). embedder/vectors may be nil when cfg.EnableEmbedding is false.
func New(cfg Config, cacheTier *cache.Tier, orchestrator *sources.Orchestrator, classifier *classify.Hybrid, queue *writequeue.Queue, vectors VectorAdder, embedder Embedder) *Pipeline {
	if cfg.MaxDocumentsToEmbed <= 0 {
		cfg.MaxDocumentsToEmbed = 20
	}
	if cfg.EmbedRiskThreshold == "" {
		cfg.EmbedRiskThreshold = models.LabelMediumLegal
	}
	if cfg.DaysBackDefault <= 0 {
		cfg.DaysBackDefault = 7
	}
	return &Pipeline{
		cfg: cfg, cacheTier: cacheTier, orchestrator: orchestrator,
		classifier: classifier, queue: queue, vectors: vectors, embedder: embedder,
		scorer: assessment.NewScorer(),
	}
}

// Envelope is the response shape of Search (SPEC_FULL.md §4.12 step 6).
type Envelope struct {
	CompanyName  string                `json:"company_name"`
	SearchDate   time.Time             `json:"search_date"`
	DateRange    DateRange             `json:"date_range"`
	Results      []models.Record       `json:"results"`
	Metadata     map[string]int        `json:"metadata"`
	Performance  Performance           `json:"performance"`
	CacheInfo    CacheInfo             `json:"cache_info"`
	OverallRisk  models.RiskVerdict    `json:"overall_risk"`
	RiskSummary  map[models.RiskLabel]int `json:"risk_summary"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Performance struct {
	ElapsedMS int64 `json:"elapsed_ms"`
}

type CacheInfo struct {
	SearchMethod string `json:"search_method"` // "cached" or "live"
}

// Search runs one company query: cache check, fan-out, classify, enqueue
// writes, optional embedding, and envelope assembly.
func (p *Pipeline) Search(ctx context.Context, company string, window sources.Window) Envelope {
	env, _ := p.SearchWithEvents(ctx, company, window)
	return env
}

// SearchWithEvents is Search, additionally returning the classified Events
// built along the way (nil on a cache hit, since cached envelopes only
// retain records), for callers like AssessmentScorer that need RiskLabels
// rather than just raw documents.
func (p *Pipeline) SearchWithEvents(ctx context.Context, company string, window sources.Window) (Envelope, []models.Event) {
	start := time.Now()
	windowStart, windowEnd := window.Resolve(p.cfg.DaysBackDefault)

	key := cache.Key(company, window.StartDate, window.EndDate, window.DaysBack, nil)
	if p.cacheTier != nil {
		if cached, hit := p.cacheTier.Get(ctx, key, company); hit {
			return p.toEnvelope(company, windowStart, windowEnd, cached.Records, start, "cached"), nil
		}
	}

	bySource := p.orchestrator.Search(ctx, company, window)

	var allRecords []models.Record
	var events []models.Event
	for src, res := range bySource {
		for _, rec := range res.Records {
			rawID := hashid.Fingerprint(rec.RawPayload)
			if len(rec.RawPayload) == 0 {
				rawID = hashid.Fingerprint([]byte(rec.Title + rec.Text + rec.URL))
			}

			classified := p.classifier.ClassifyDocument(ctx, rec.Text, rec.Title, string(src), rec.Section)

			eventID := fmt.Sprintf("%s:%s", src, rawID)
			label := classified.Result.Label
			conf := classified.Result.Confidence
			now := time.Now()

			ev := models.Event{
				EventID: eventID, Title: rec.Title, Text: rec.Text, Section: rec.Section,
				URL: rec.URL, Source: src, RiskLabel: &label, Confidence: &conf,
				Rationale: classified.Result.Rationale, ClassificationMethod: classified.Result.Method,
				ClassifierTS: &now,
			}
			if !rec.PublishedAt.IsZero() {
				pub := rec.PublishedAt
				ev.PubDate = &pub
			}
			ev.DateParseError = rec.DateParseError

			rec.RiskLabel = &label
			rec.RiskColor = models.ColorFor(label)

			events = append(events, ev)
			allRecords = append(allRecords, rec)
		}
	}

	if p.queue != nil && len(events) > 0 {
		p.queue.Enqueue(writequeue.NewEventsRequest(company, events))
	}

	if p.cfg.EnableEmbedding && p.vectors != nil && p.embedder != nil {
		p.embedSelected(ctx, company, events)
	}

	if p.cacheTier != nil {
		p.cacheTier.Set(ctx, key, models.SourceResult{
			Summary: models.SourceSummary{Query: company, TotalResults: len(allRecords)},
			Records: allRecords,
		})
	}

	return p.toEnvelope(company, windowStart, windowEnd, allRecords, start, "live"), events
}

// embedSelected keeps events whose risk label ranks at or above
// EmbedRiskThreshold, caps at MaxDocumentsToEmbed, and embeds+stores each
// survivor (SPEC_FULL.md §4.12 step 5). The filter is the label threshold
// only; events below it are not embedded even if their text contains D&O
// keywords.
func (p *Pipeline) embedSelected(ctx context.Context, company string, events []models.Event) {
	embedded := 0
	for _, ev := range events {
		if embedded >= p.cfg.MaxDocumentsToEmbed {
			break
		}
		if ev.RiskLabel == nil || !meetsEmbedThreshold(*ev.RiskLabel, p.cfg.EmbedRiskThreshold) {
			continue
		}

		text := ev.Text
		vec, err := p.embedder.Embed(ctx, text)
		if err != nil {
			fmt.Printf("[PIPELINE] embedding failed for %s, skipping: %v\n", ev.EventID, err)
			continue
		}

		meta := map[string]string{"company_name": company, "risk_level": string(*ev.RiskLabel), "source": string(ev.Source)}
		v := models.Vector{EventID: ev.EventID, CompanyName: company, RiskLevel: string(*ev.RiskLabel), Source: ev.Source, Title: ev.Title, TextSummary: truncate(text, 500)}

		if err := p.vectors.Add(ctx, ev.EventID, vec, meta, text, v); err != nil {
			fmt.Printf("[PIPELINE] vector store add failed for %s, skipping: %v\n", ev.EventID, err)
			continue
		}
		embedded++
	}
}

var embedRank = map[models.RiskLabel]int{
	models.LabelNoLegal: 0, models.LabelLowOperational: 1, models.LabelLowLegal: 2,
	models.LabelMediumOperational: 3, models.LabelMediumLegal: 4,
	models.LabelHighFinancial: 5, models.LabelHighRegulatory: 5, models.LabelHighLegal: 5,
}

func meetsEmbedThreshold(label, threshold models.RiskLabel) bool {
	return embedRank[label] >= embedRank[threshold]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (p *Pipeline) toEnvelope(company string, windowStart, windowEnd time.Time, records []models.Record, start time.Time, method string) Envelope {
	riskSummary := map[models.RiskLabel]int{}
	overall := models.VerdictGreen
	for _, r := range records {
		if r.RiskLabel == nil {
			continue
		}
		riskSummary[*r.RiskLabel]++
		switch r.RiskColor {
		case models.ColorRed:
			overall = models.VerdictRed
		case models.ColorOrange:
			if overall != models.VerdictRed {
				overall = models.VerdictOrange
			}
		}
	}

	env := Envelope{
		CompanyName: company, SearchDate: time.Now(),
		DateRange:   DateRange{Start: windowStart, End: windowEnd},
		Results:     records,
		Metadata:    map[string]int{"total_results": len(records)},
		Performance: Performance{ElapsedMS: time.Since(start).Milliseconds()},
		CacheInfo:   CacheInfo{SearchMethod: method},
		RiskSummary: riskSummary,
		OverallRisk: overall,
	}
	return env
}

// Assess runs Search for company and folds the resulting classified events
// through AssessmentScorer, giving callers a full models.Assessment without
// constructing their own Scorer (SPEC_FULL.md §4.11/§4.12).
func (p *Pipeline) Assess(ctx context.Context, userID, company string, window sources.Window) models.Assessment {
	env, events := p.SearchWithEvents(ctx, company, window)
	return p.scorer.Score(company, userID, events, env.DateRange.Start, env.DateRange.End)
}
