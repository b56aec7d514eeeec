package classify

import (
	"context"
	"fmt"
	"sync"

	"bhsi/pkg/models"
)

// llmCaller is the narrow interface Hybrid depends on, satisfied by
// *LLMClassifier. Narrowed for testability (see hybrid_test.go).
type llmCaller interface {
	Classify(ctx context.Context, text, title, source, section string) (*Result, error)
}

// Stats is a read-only snapshot of Hybrid's classification counters
// (SPEC_FULL.md §9 "Global mutable state": struct-owned, not process-wide).
type Stats struct {
	KeywordHits          int
	LLMCalls             int
	TotalClassifications int
}

// Hybrid composes Gate -> LLMClassifier per SPEC_FULL.md §4.5.
type Hybrid struct {
	gate *Gate
	llm  llmCaller

	mu    sync.Mutex
	stats Stats
}

// NewHybrid constructs a HybridClassifier.
func NewHybrid(gate *Gate, llm llmCaller) *Hybrid {
	return &Hybrid{gate: gate, llm: llm}
}

// Classified is one document's classification result plus the provenance of
// both sub-stages, used by the batch variant and by confidence-enhancement.
type Classified struct {
	Result     Result
	KeywordRes *Result
	LLMRes     *Result
	SourceUsed string // "keyword" or "llm"
}

// routinePattern matches the kind of low-stakes, clearly-non-legal text
// (sports, awards, routine wins) the escalation predicate treats as
// "routine" when text is short. It deliberately does not overlap with
// legalContentIndicator's vocabulary.
var routinePattern = tiers[0].patterns // the No-Legal tier's patterns

func matchesRoutine(text string) bool {
	for _, p := range routinePattern {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// shouldEscalate implements the escalation predicate of SPEC_FULL.md §4.5
// step 2: a legal-content indicator is present, text is long enough, and
// (for short texts) it is not a routine pattern.
//
// SPEC_FULL.md §9 records an edge case here: a sub-200-char text can
// contain both "nombramiento" and a legal indicator (e.g. "sentencia").
// shouldEscalate itself returns true for such text, because "nombramiento"
// never matches routinePattern (the No-Legal sports/awards vocabulary). In
// ClassifyDocument, though, the gate's Low-Operational tier matches
// "nombramiento" first, so such text is decided by the gate and this
// predicate is not consulted.
func shouldEscalate(text string) bool {
	if !legalContentIndicator.MatchString(text) {
		return false
	}
	if len(text) < 50 {
		return false
	}
	if len(text) < 200 && matchesRoutine(text) {
		return false
	}
	return true
}

// ClassifyDocument implements SPEC_FULL.md §4.5's classify_document.
func (h *Hybrid) ClassifyDocument(ctx context.Context, text, title, source, section string) Classified {
	h.incrementTotal()

	if kw, ok := h.gate.Classify(text, section); ok {
		h.incrementKeywordHits()
		return Classified{Result: *kw, KeywordRes: kw, SourceUsed: "keyword"}
	}

	if !shouldEscalate(text) {
		return Classified{Result: defaultResult(), SourceUsed: "keyword"}
	}

	h.incrementLLMCalls()
	res, err := h.llm.Classify(ctx, text, title, source, section)
	if err != nil || res == nil {
		return Classified{Result: defaultResult(), SourceUsed: "keyword"}
	}
	return Classified{Result: *res, LLMRes: res, SourceUsed: "llm"}
}

func defaultResult() Result {
	return Result{
		Label: models.LabelNoLegal, Confidence: 0.8,
		Method: models.MethodHybridDefault, Rationale: "No legal indicators detected",
	}
}

// ClassifyDocumentsBatch runs the gate over every doc, then submits the
// ambiguous subset's LLM calls one-by-one via llm (the remote endpoint
// itself may batch internally; this module preserves input order when
// stitching results back, per SPEC_FULL.md §4.5's batch variant).
func (h *Hybrid) ClassifyDocumentsBatch(ctx context.Context, docs []Doc) []Classified {
	out := make([]Classified, len(docs))
	var pending []int

	for i, d := range docs {
		h.incrementTotal()
		if kw, ok := h.gate.Classify(d.Text, d.Section); ok {
			h.incrementKeywordHits()
			out[i] = Classified{Result: *kw, KeywordRes: kw, SourceUsed: "keyword"}
			continue
		}
		if !shouldEscalate(d.Text) {
			out[i] = Classified{Result: defaultResult(), SourceUsed: "keyword"}
			continue
		}
		pending = append(pending, i)
	}

	for _, i := range pending {
		d := docs[i]
		h.incrementLLMCalls()
		res, err := h.llm.Classify(ctx, d.Text, d.Title, d.Source, d.Section)
		if err != nil || res == nil {
			out[i] = Classified{Result: defaultResult(), SourceUsed: "keyword"}
			continue
		}
		out[i] = Classified{Result: *res, LLMRes: res, SourceUsed: "llm"}
	}

	return out
}

// Doc is the minimal input ClassifyDocumentsBatch needs per item.
type Doc struct {
	Text, Title, Source, Section string
}

// ClassifyWithConfidenceEnhancement implements SPEC_FULL.md §4.5's optional
// confidence-enhancement mode: when the keyword result is present but below
// 0.8 confidence, the LLM is also consulted and the two results combined.
func (h *Hybrid) ClassifyWithConfidenceEnhancement(ctx context.Context, text, title, source, section string) Classified {
	kw, kwOK := h.gate.Classify(text, section)
	if kwOK {
		h.incrementKeywordHits()
	}
	h.incrementTotal()

	if kwOK && kw.Confidence >= 0.8 {
		return Classified{Result: *kw, KeywordRes: kw, SourceUsed: "keyword"}
	}

	h.incrementLLMCalls()
	llmRes, err := h.llm.Classify(ctx, text, title, source, section)
	if err != nil || llmRes == nil {
		if kwOK {
			return Classified{Result: *kw, KeywordRes: kw, SourceUsed: "keyword"}
		}
		return Classified{Result: defaultResult(), SourceUsed: "keyword"}
	}
	if !kwOK {
		return Classified{Result: *llmRes, LLMRes: llmRes, SourceUsed: "llm"}
	}

	if kw.Label == llmRes.Label {
		conf := kw.Confidence
		if llmRes.Confidence > conf {
			conf = llmRes.Confidence
		}
		combined := Result{
			Label: kw.Label, Confidence: conf, Method: models.MethodHybridLLM,
			Rationale: fmt.Sprintf("keyword and llm agree on %s", kw.Label),
		}
		return Classified{Result: combined, KeywordRes: kw, LLMRes: llmRes, SourceUsed: "llm"}
	}

	combined := Result{
		Label:      llmRes.Label,
		Confidence: 0.7*llmRes.Confidence + 0.3*kw.Confidence,
		Method:     models.MethodHybridLLM,
		Rationale:  fmt.Sprintf("keyword=%s llm=%s disagree, llm wins", kw.Label, llmRes.Label),
	}
	return Classified{Result: combined, KeywordRes: kw, LLMRes: llmRes, SourceUsed: "llm"}
}

// Stats returns a read-only snapshot of the classification counters.
func (h *Hybrid) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Hybrid) incrementKeywordHits() {
	h.mu.Lock()
	h.stats.KeywordHits++
	h.mu.Unlock()
}

func (h *Hybrid) incrementLLMCalls() {
	h.mu.Lock()
	h.stats.LLMCalls++
	h.mu.Unlock()
}

func (h *Hybrid) incrementTotal() {
	h.mu.Lock()
	h.stats.TotalClassifications++
	h.mu.Unlock()
}
