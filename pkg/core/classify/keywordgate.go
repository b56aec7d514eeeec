// Package classify implements the two-stage hybrid classifier:
// KeywordGate (deterministic, regex-driven) and LLMClassifier (remote
// fallback), composed by Hybrid.
package classify

import (
	"regexp"
	"strings"

	"bhsi/pkg/models"
)

// Result is the outcome of classifying one document, independent of which
// stage (keyword or LLM) produced it.
type Result struct {
	Label      models.RiskLabel
	Confidence float64
	Method     models.ClassificationMethod
	Rationale  string
}

// highLegalSections lists the BOE section codes that unconditionally force
// High-Legal.
var highLegalSections = map[string]bool{
	"JUS": true, "CNMC": true, "AEPD": true, "CNMV": true,
	"BDE": true, "DGSFP": true, "SEPBLAC": true,
}

// tier groups one priority level's compiled patterns with its fixed outcome.
type tier struct {
	patterns   []*regexp.Regexp
	label      models.RiskLabel
	confidence float64
	method     models.ClassificationMethod
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+e))
	}
	return out
}

// Priority-ordered tiers, after the section override and before the
// short-text heuristic. Order here IS the priority order of SPEC_FULL.md §4.3.
var tiers = []tier{
	{
		// No-Legal patterns: sports/entertainment, routine wins, awards.
		patterns: compileAll(
			`\b(liga|partido|gol(es)?|campeon(ato)?|f[uú]tbol|baloncesto)\b`,
			`\b(premio|galard[oó]n|reconocimiento)\b`,
			`\b(gana(dor)?|triunfo|victoria)\s+(el|la|del|de la)\s+(liga|torneo|premio)`,
		),
		label: models.LabelNoLegal, confidence: 0.90, method: models.MethodKeywordNoLegal,
	},
	{
		// High-Legal: bankruptcy, criminal proceedings, severe sanctions,
		// money-laundering, market manipulation.
		patterns: compileAll(
			`\b(concurso de acreedores|quiebra|insolvencia)\b`,
			`\b(delito|condena(do)?|imputaci[oó]n|prisi[oó]n)\b`,
			`\b(blanqueo de capitales|lavado de dinero)\b`,
			`\b(manipulaci[oó]n de mercado|abuso de mercado)\b`,
			`\bsanci[oó]n (grave|muy grave)\b`,
		),
		label: models.LabelHighLegal, confidence: 0.92, method: models.MethodKeywordHighLegal,
	},
	{
		// High-Financial: losses, liquidity crisis, debt default.
		patterns: compileAll(
			`\bp[eé]rdidas (millonarias|hist[oó]ricas|significativas)\b`,
			`\bcrisis de liquidez\b`,
			`\bimpago de deuda\b`,
			`\bsuspensi[oó]n de pagos\b`,
		),
		label: models.LabelHighFinancial, confidence: 0.90, method: models.MethodKeywordHighFinancial,
	},
	{
		// High-Regulatory: sanctions/fines by named Spanish regulators.
		patterns: compileAll(
			`\b(cnmv|cnmc|banco de espa[nñ]a|aepd|sepblac|dgsfp)\b.{0,60}\b(sanci[oó]n|multa)\b`,
			`\b(sanci[oó]n|multa)\b.{0,60}\b(cnmv|cnmc|banco de espa[nñ]a|aepd|sepblac|dgsfp)\b`,
		),
		label: models.LabelHighRegulatory, confidence: 0.90, method: models.MethodKeywordHighRegulatory,
	},
	{
		// Medium-Legal: warnings, administrative proceedings, minor
		// sanctions, compliance deficiencies.
		patterns: compileAll(
			`\b(apercibimiento|advertencia formal)\b`,
			`\bexpediente (administrativo|sancionador)\b`,
			`\bdeficiencias? de cumplimiento\b`,
			`\bsanci[oó]n leve\b`,
		),
		label: models.LabelMediumLegal, confidence: 0.87, method: models.MethodKeywordMediumLegal,
	},
	{
		// Medium-Operational: collective dismissals, environmental incidents.
		patterns: compileAll(
			`\b(expediente de regulaci[oó]n de empleo|ere|despido colectivo)\b`,
			`\b(incidente|vertido) (medioambiental|ambiental)\b`,
		),
		label: models.LabelMediumOperational, confidence: 0.85, method: models.MethodKeywordMediumOperational,
	},
	{
		// Low-Legal: notices, licenses, registrations.
		patterns: compileAll(
			`\b(notificaci[oó]n oficial|aviso legal)\b`,
			`\b(licencia|registro) (municipal|mercantil|de actividad)\b`,
		),
		label: models.LabelLowLegal, confidence: 0.82, method: models.MethodKeywordLowLegal,
	},
	{
		// Low-Operational: appointments, routine M&A, headquarters change.
		patterns: compileAll(
			`\bnombramiento\b`,
			`\b(adquisici[oó]n|fusi[oó]n) (rutinaria|menor)\b`,
			`\bcambio de sede\b`,
		),
		label: models.LabelLowOperational, confidence: 0.80, method: models.MethodKeywordLowOperational,
	},
}

// legalContentIndicator recognizes any legal-sounding term, used both by the
// short-text heuristic (tier 10) and by Hybrid's escalation predicate.
var legalContentIndicator = regexp.MustCompile(
	`(?i)\b(tribunal|juzgado|sentencia|proceso|expediente|sanci[oó]n\w*|multa|infracci[oó]n|normativ\w*|regulaci[oó]n)\b`,
)

// Gate is the deterministic keyword classifier. It is immutable after
// construction: compiled regexes are read-only, so concurrent calls to
// Classify need no locking (SPEC_FULL.md §5 "KeywordGate is read-only after
// construction").
type Gate struct{}

// NewGate constructs a KeywordGate. All patterns are precompiled at package
// init, so construction itself never fails.
func NewGate() *Gate {
	return &Gate{}
}

// Classify runs the priority-ordered keyword rules against text (and, for
// the section override, the BOE section code). It returns (nil, false) when
// nothing matches — the "ambiguous" outcome of SPEC_FULL.md §4.3 step 11.
func (g *Gate) Classify(text, sectionCode string) (*Result, bool) {
	if highLegalSections[strings.ToUpper(sectionCode)] {
		return &Result{
			Label: models.LabelHighLegal, Confidence: 0.95,
			Method: models.MethodKeywordSection, Rationale: "BOE section " + sectionCode,
		}, true
	}

	for _, tr := range tiers {
		if m := firstMatch(tr.patterns, text); m != "" {
			return &Result{
				Label: tr.label, Confidence: tr.confidence, Method: tr.method,
				Rationale: "matched: " + m,
			}, true
		}
	}

	if len(text) < 100 && !legalContentIndicator.MatchString(text) {
		return &Result{
			Label: models.LabelNoLegal, Confidence: 0.85,
			Method: models.MethodKeywordShortText, Rationale: "short text, no legal indicator",
		}, true
	}

	return nil, false
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return ""
}
