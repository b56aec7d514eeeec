package utils

import "testing"

func TestStripEmphasisRemovesAsterisksAndCollapsesBlankLines(t *testing.T) {
	input := "**Riesgo elevado** para *Banco X*.\n\n\n\nSe recomienda revisión."
	got := StripEmphasis(input)

	if got[0] == '*' || got[len(got)-1] == '*' {
		t.Errorf("expected no leading/trailing asterisks, got %q", got)
	}
	if got != "Riesgo elevado para Banco X.\n\nSe recomienda revisión." {
		t.Errorf("unexpected stripped output: %q", got)
	}
}

func TestSmartParseRepairsTrailingComma(t *testing.T) {
	type reply struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	var out reply
	malformed := `{"label": "High-Legal", "confidence": 0.95,}`

	if _, err := SmartParse(malformed, &out); err != nil {
		t.Fatalf("expected SmartParse to repair trailing comma, got error: %v", err)
	}
	if out.Label != "High-Legal" {
		t.Errorf("expected label High-Legal, got %q", out.Label)
	}
}
