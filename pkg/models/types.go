// Package models holds the data model shared across the D&O risk pipeline:
// raw documents, normalized events, vectors, assessments, and companies.
package models

import "time"

// Source identifies which backend a RawDoc or Event came from.
type Source string

const (
	SourceBOE           Source = "BOE"
	SourceNewsAPI       Source = "NEWSAPI"
	SourceYahooFinance  Source = "YAHOO_FINANCE"
	rssSourcePrefix            = "RSS_"
)

// RSSSource builds the Source value for a named RSS outlet, e.g. RSS_elpais.
func RSSSource(outlet string) Source {
	return Source(rssSourcePrefix + outlet)
}

// DocStatus tracks a RawDoc's progress through parsing.
type DocStatus string

const (
	DocStatusUnparsed DocStatus = ""
	DocStatusParsed   DocStatus = "parsed"
	DocStatusError    DocStatus = "error"
	DocStatusDLQ      DocStatus = "dlq"
)

// MaxRetriesBeforeDLQ is the retry count at which a RawDoc's status
// transitions from error to dlq (dead-letter).
const MaxRetriesBeforeDLQ = 5

// RawDoc is an immutable source record, keyed by the SHA-256 of its
// canonical payload.
type RawDoc struct {
	RawID     string            `json:"raw_id"`
	Source    Source            `json:"source"`
	Payload   []byte            `json:"payload"`
	Meta      map[string]string `json:"meta"`
	FetchedAt time.Time         `json:"fetched_at"`
	Retries   int               `json:"retries"`
	Status    DocStatus         `json:"status"`
}

// RiskLabel is a value from the 4-tier x 3-category taxonomy plus
// No-Legal/Unknown.
type RiskLabel string

const (
	LabelHighLegal        RiskLabel = "High-Legal"
	LabelHighFinancial    RiskLabel = "High-Financial"
	LabelHighRegulatory   RiskLabel = "High-Regulatory"
	LabelMediumLegal      RiskLabel = "Medium-Legal"
	LabelMediumOperational RiskLabel = "Medium-Operational"
	LabelLowLegal         RiskLabel = "Low-Legal"
	LabelLowOperational   RiskLabel = "Low-Operational"
	LabelNoLegal          RiskLabel = "No-Legal"
	LabelUnknown          RiskLabel = "Unknown"
)

// ClassificationMethod records how an Event arrived at its RiskLabel.
type ClassificationMethod string

const (
	MethodKeywordSection     ClassificationMethod = "keyword_section"
	MethodKeywordNoLegal     ClassificationMethod = "keyword_no_legal"
	MethodKeywordShortText   ClassificationMethod = "keyword_short_text"
	MethodKeywordHighLegal   ClassificationMethod = "keyword_high_legal"
	MethodKeywordHighFinancial ClassificationMethod = "keyword_high_financial"
	MethodKeywordHighRegulatory ClassificationMethod = "keyword_high_regulatory"
	MethodKeywordMediumLegal ClassificationMethod = "keyword_medium_legal"
	MethodKeywordMediumOperational ClassificationMethod = "keyword_medium_operational"
	MethodKeywordLowLegal    ClassificationMethod = "keyword_low_legal"
	MethodKeywordLowOperational ClassificationMethod = "keyword_low_operational"
	MethodCached             ClassificationMethod = "cached"
	MethodHybridLLM          ClassificationMethod = "hybrid_llm"
	MethodHybridDefault      ClassificationMethod = "hybrid_default"
	MethodErrorFallback      ClassificationMethod = "error_fallback"
)

// EmbeddingStatus tracks whether an Event has been vectorised.
type EmbeddingStatus string

const (
	EmbeddingStatusUnembedded EmbeddingStatus = ""
	EmbeddingStatusVectorised EmbeddingStatus = "vectorised"
)

// Event is a normalized, classifiable unit extracted from a RawDoc.
type Event struct {
	EventID              string               `json:"event_id"`
	Title                string               `json:"title"`
	Text                 string               `json:"text"`
	Section              string               `json:"section"`
	URL                  string               `json:"url"`
	PubDate              *time.Time           `json:"pub_date,omitempty"`
	DateParseError       bool                 `json:"date_parse_error"`
	Source               Source               `json:"source"`
	RiskLabel            *RiskLabel           `json:"risk_label,omitempty"`
	Confidence           *float64             `json:"confidence,omitempty"`
	Rationale            string               `json:"rationale"`
	ClassificationMethod ClassificationMethod `json:"classification_method,omitempty"`
	ClassifierTS         *time.Time           `json:"classifier_ts,omitempty"`
	EmbeddingStatus      EmbeddingStatus      `json:"embedding_status,omitempty"`
	EmbeddingModel       string               `json:"embedding_model,omitempty"`
	Alerted              bool                 `json:"alerted"`
}

// RiskColor is the UI-facing color a RiskLabel maps onto.
type RiskColor string

const (
	ColorRed    RiskColor = "red"
	ColorOrange RiskColor = "orange"
	ColorGreen  RiskColor = "green"
	ColorGray   RiskColor = "gray"
)

// ColorFor implements the color-mapping contract of SPEC_FULL.md §4.5:
// High-* -> red, Medium-* -> orange, Low-*/No-Legal -> green, else gray.
func ColorFor(label RiskLabel) RiskColor {
	switch {
	case hasPrefix(string(label), "High-"):
		return ColorRed
	case hasPrefix(string(label), "Medium-"):
		return ColorOrange
	case hasPrefix(string(label), "Low-"), label == LabelNoLegal:
		return ColorGreen
	default:
		return ColorGray
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Vector is a dense embedding bound to an Event.
type Vector struct {
	EventID         string    `json:"event_id"`
	Values          []float32 `json:"-"`
	Dimension       int       `json:"vector_dimension"`
	EmbeddingModel  string    `json:"embedding_model"`
	VectorCreatedAt time.Time `json:"vector_created_at"`
	IsActive        bool      `json:"is_active"`

	// Denormalized filter columns.
	CompanyName     string `json:"company_name"`
	RiskLevel       string `json:"risk_level"`
	PublicationDate string `json:"publication_date"`
	Source          Source `json:"source"`
	Title           string `json:"title"`
	TextSummary     string `json:"text_summary"`
}

// RiskVerdict is a categorical risk score, one of green/orange/red.
type RiskVerdict string

const (
	VerdictGreen  RiskVerdict = "green"
	VerdictOrange RiskVerdict = "orange"
	VerdictRed    RiskVerdict = "red"
)

// Assessment is the output of AssessmentScorer for one (company, user, window).
type Assessment struct {
	AssessmentID     string      `json:"assessment_id"`
	CompanyVAT       *string     `json:"company_vat,omitempty"`
	UserID           string      `json:"user_id"`
	TurnoverRisk     RiskVerdict `json:"turnover_risk"`
	ShareholdingRisk RiskVerdict `json:"shareholding_risk"`
	BankruptcyRisk   RiskVerdict `json:"bankruptcy_risk"`
	LegalRisk        RiskVerdict `json:"legal_risk"`
	CorruptionRisk   RiskVerdict `json:"corruption_risk"`
	OverallRisk      RiskVerdict `json:"overall_risk"`
	FinancialScore   float64     `json:"financial_score"`
	LegalScore       float64     `json:"legal_score"`
	PressScore       float64     `json:"press_score"`
	CompositeScore   float64     `json:"composite_score"`
	WindowStart      time.Time   `json:"window_start"`
	WindowEnd        time.Time   `json:"window_end"`
	SourcesSearched  []string    `json:"sources_searched"`
	ResultCounts     map[string]int `json:"result_counts"`
	Summary          string      `json:"summary"`
	KeyFindings      []string    `json:"key_findings"`
	Recommendations  []string    `json:"recommendations"`
}

// Company is an identity plus last-known risk summary, keyed by name.
type Company struct {
	Name        string  `json:"name"`
	VAT         *string `json:"vat,omitempty"`
	LastRisk    *RiskVerdict `json:"last_risk,omitempty"`
	LastChecked *time.Time   `json:"last_checked,omitempty"`
}

// WriteOp is the operation a WriteRequest asks WriteQueue to perform.
type WriteOp string

const (
	OpInsert WriteOp = "insert"
	OpUpsert WriteOp = "upsert"
)

// WritePriority orders WriteRequests within one drain tick; 1 is highest.
type WritePriority int

const (
	PriorityHigh   WritePriority = 1
	PriorityMedium WritePriority = 2
	PriorityLow    WritePriority = 3
)

// WriteRequest is a unit of deferred work for WriteQueue.
type WriteRequest struct {
	RequestID string
	Table     string
	Rows      []map[string]any
	Operation WriteOp
	Priority  WritePriority
}

// Record is one uniform item returned by a SourceAdapter, before
// classification. Source-specific fields (BOE's seccion_codigo, Yahoo
// Finance's risk indicators, ...) travel in Extra.
type Record struct {
	Title          string            `json:"title"`
	Text           string            `json:"text"`
	URL            string            `json:"url"`
	PublishedAt    time.Time         `json:"published_at"`
	DateParseError bool              `json:"date_parse_error"`
	Section        string            `json:"section,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
	RawPayload     []byte            `json:"-"`

	// Populated once classified; absent (RiskLabel nil, RiskColor "") for a
	// Record that hasn't gone through HybridClassifier yet.
	RiskLabel *RiskLabel `json:"risk_label,omitempty"`
	RiskColor RiskColor  `json:"risk_color"`
}

// SourceSummary carries the per-adapter outcome metadata of one search.
type SourceSummary struct {
	Query       string   `json:"query"`
	Source      Source   `json:"source"`
	TotalResults int     `json:"total_results"`
	Errors      []string `json:"errors"`
}

// SourceResult is the uniform envelope every SourceAdapter.Search returns
// (SPEC_FULL.md §4.2).
type SourceResult struct {
	Summary SourceSummary `json:"summary"`
	Records []Record      `json:"records"`
}
