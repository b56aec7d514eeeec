package hashid

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	payload := []byte(`{"company":"Banco X","section":"JUS"}`)

	a := Fingerprint(payload)
	b := Fingerprint(payload)

	if a != b {
		t.Errorf("expected identical fingerprints, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64-hex digest, got length %d", len(a))
	}
}

func TestFingerprintDiffersOnInput(t *testing.T) {
	a := Fingerprint([]byte(`{"a":1}`))
	b := Fingerprint([]byte(`{"a":2}`))

	if a == b {
		t.Errorf("expected different fingerprints for different payloads")
	}
}
