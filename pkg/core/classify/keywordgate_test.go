package classify

import (
	"testing"

	"bhsi/pkg/models"
)

func TestGateSectionOverride(t *testing.T) {
	g := NewGate()
	res, ok := g.Classify("concurso de acreedores de Empresa Concurso", "JUS")
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Label != models.LabelHighLegal || res.Confidence < 0.92 {
		t.Errorf("expected High-Legal >=0.92, got %+v", res)
	}
	if res.Method != models.MethodKeywordSection {
		t.Errorf("expected keyword_section, got %s", res.Method)
	}
}

func TestGateNoLegalShortText(t *testing.T) {
	g := NewGate()
	res, ok := g.Classify("Club gana la liga de fútbol", "")
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Label != models.LabelNoLegal || res.Confidence < 0.85 {
		t.Errorf("expected No-Legal >=0.85, got %+v", res)
	}
}

func TestGateIdempotence(t *testing.T) {
	g := NewGate()
	text := "La empresa anuncia el nombramiento de un nuevo consejero delegado"
	a, aOK := g.Classify(text, "")
	b, bOK := g.Classify(text, "")
	if aOK != bOK {
		t.Fatalf("idempotence broken: ok mismatch %v vs %v", aOK, bOK)
	}
	if aOK && (*a != *b) {
		t.Errorf("idempotence broken: %+v vs %+v", a, b)
	}
}

func TestGatePrecedenceHighLegalBeatsLowOperational(t *testing.T) {
	g := NewGate()
	// Contains both a High-Legal phrase ("concurso de acreedores") and a
	// Low-Operational phrase ("nombramiento").
	text := "Tras el nombramiento del nuevo consejero, la compañía entra en concurso de acreedores"
	res, ok := g.Classify(text, "")
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Label != models.LabelHighLegal {
		t.Errorf("expected precedence to pick High-Legal, got %s", res.Label)
	}
}

func TestGateAmbiguousReturnsNoMatch(t *testing.T) {
	g := NewGate()
	_, ok := g.Classify("La CNMV inició una revisión técnica no sancionadora de un proceso interno", "")
	if ok {
		t.Error("expected ambiguous (no match) for a text with a legal indicator but no tier pattern")
	}
}

func TestColorMappingIsTotal(t *testing.T) {
	labels := []models.RiskLabel{
		models.LabelHighLegal, models.LabelHighFinancial, models.LabelHighRegulatory,
		models.LabelMediumLegal, models.LabelMediumOperational,
		models.LabelLowLegal, models.LabelLowOperational,
		models.LabelNoLegal, models.LabelUnknown,
	}
	valid := map[models.RiskColor]bool{
		models.ColorRed: true, models.ColorOrange: true, models.ColorGreen: true, models.ColorGray: true,
	}
	for _, l := range labels {
		if !valid[models.ColorFor(l)] {
			t.Errorf("label %s mapped to invalid color %s", l, models.ColorFor(l))
		}
	}
}
