// Package assessment implements AssessmentScorer (SPEC_FULL.md §4.11):
// turns a company's classified events into the five categorical risk
// dimensions plus an overall verdict, with supporting findings and
// recommendations.
package assessment

import (
	"fmt"
	"strings"
	"time"

	"bhsi/pkg/models"
)

const (
	redThreshold    = 70.0
	orangeThreshold = 40.0
	topFindings     = 5
)

// Scorer computes an Assessment from a company's classified events.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

// Score builds a full models.Assessment from events over one window
// (SPEC_FULL.md §4.11). events with a nil RiskLabel are excluded from the
// denominators.
func (s *Scorer) Score(companyVAT, userID string, events []models.Event, windowStart, windowEnd time.Time) models.Assessment {
	counts := tally(events)

	financial := 100 * (0.8*float64(counts.highAny) + 0.4*float64(counts.mediumAny)) / denom(counts.total)
	legal := 100 * (0.9*float64(counts.highLegal) + 0.5*float64(counts.mediumLegal)) / denom(counts.total)
	press := 100 * (0.6 * float64(counts.pressSource)) / denom(counts.total)
	composite := (financial + legal + press) / 3

	overall := verdictFor(composite)

	a := models.Assessment{
		CompanyVAT:       nonEmptyPtr(companyVAT),
		UserID:           userID,
		TurnoverRisk:     verdictFor(financial),
		ShareholdingRisk: verdictFor(financial),
		BankruptcyRisk:   verdictFor(legal),
		LegalRisk:        verdictFor(legal),
		CorruptionRisk:   verdictFor(legal),
		OverallRisk:      overall,
		FinancialScore:   financial,
		LegalScore:       legal,
		PressScore:       press,
		CompositeScore:   composite,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		SourcesSearched:  counts.sourcesSeen(),
		ResultCounts:     counts.bySource,
		KeyFindings:      keyFindings(events),
		Recommendations:  recommendationsFor(overall),
	}
	a.Summary = summaryFor(overall, counts.total)
	return a
}

type tallies struct {
	total       int
	highAny     int
	highLegal   int
	mediumLegal int
	mediumAny   int
	pressSource int
	bySource    map[string]int
}

func (t tallies) sourcesSeen() []string {
	out := make([]string, 0, len(t.bySource))
	for src := range t.bySource {
		out = append(out, src)
	}
	return out
}

func tally(events []models.Event) tallies {
	t := tallies{bySource: map[string]int{}}
	for _, e := range events {
		if e.RiskLabel == nil {
			continue
		}
		t.total++
		t.bySource[string(e.Source)]++

		label := string(*e.RiskLabel)
		if strings.HasPrefix(label, "High-") {
			t.highAny++
		}
		if label == string(models.LabelHighLegal) {
			t.highLegal++
		}
		if label == string(models.LabelMediumLegal) {
			t.mediumLegal++
		}
		if strings.HasPrefix(label, "Medium-") {
			t.mediumAny++
		}
		if strings.HasPrefix(string(e.Source), "RSS_") || e.Source == models.SourceNewsAPI {
			t.pressSource++
		}
	}
	return t
}

func denom(total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(total)
}

func verdictFor(score float64) models.RiskVerdict {
	switch {
	case score >= redThreshold:
		return models.VerdictRed
	case score >= orangeThreshold:
		return models.VerdictOrange
	default:
		return models.VerdictGreen
	}
}

// keyFindings returns the titles of the topFindings highest-risk events,
// high tiers first, per SPEC_FULL.md §4.11.
func keyFindings(events []models.Event) []string {
	var high, medium []string
	for _, e := range events {
		if e.RiskLabel == nil {
			continue
		}
		switch {
		case strings.HasPrefix(string(*e.RiskLabel), "High-"):
			high = append(high, e.Title)
		case strings.HasPrefix(string(*e.RiskLabel), "Medium-"):
			medium = append(medium, e.Title)
		}
	}
	findings := append(high, medium...)
	if len(findings) > topFindings {
		findings = findings[:topFindings]
	}
	return findings
}

var recommendationTemplates = map[models.RiskVerdict][]string{
	models.VerdictRed: {
		"Convocar una revisión urgente del consejo para evaluar la exposición identificada.",
		"Solicitar asesoramiento legal externo antes de la próxima junta de accionistas.",
		"Revisar la cobertura de la póliza D&O vigente frente a los hallazgos detectados.",
	},
	models.VerdictOrange: {
		"Monitorizar la evolución de los indicadores en las próximas semanas.",
		"Documentar las acciones correctivas adoptadas ante los hallazgos de riesgo medio.",
	},
	models.VerdictGreen: {
		"Mantener la cadencia de monitorización estándar.",
	},
}

func recommendationsFor(overall models.RiskVerdict) []string {
	return recommendationTemplates[overall]
}

func summaryFor(overall models.RiskVerdict, total int) string {
	return fmt.Sprintf("Evaluación basada en %d eventos clasificados; riesgo global: %s.", total, overall)
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
