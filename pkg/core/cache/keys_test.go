package cache

import "testing"

func TestKeyOrderInvariance(t *testing.T) {
	a := Key("Banco X", "2026-01-01", "2026-01-31", 0, []string{"BOE", "NEWSAPI", "RSS_elpais"})
	b := Key("Banco X", "2026-01-01", "2026-01-31", 0, []string{"RSS_elpais", "BOE", "NEWSAPI"})

	if a != b {
		t.Errorf("expected identical keys regardless of source ordering, got %s and %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32-hex MD5 digest, got length %d", len(a))
	}
}

func TestKeyCaseInvariance(t *testing.T) {
	a := Key("Banco X", "2026-01-01", "2026-01-31", 0, []string{"BOE"})
	b := Key("banco x", "2026-01-01", "2026-01-31", 0, []string{"BOE"})
	if a != b {
		t.Errorf("expected case-insensitive company name to yield identical keys")
	}
}

func TestKeyDiffersOnWindow(t *testing.T) {
	a := Key("Banco X", "2026-01-01", "2026-01-31", 0, []string{"BOE"})
	b := Key("Banco X", "2026-02-01", "2026-02-28", 0, []string{"BOE"})
	if a == b {
		t.Errorf("expected different keys for different windows")
	}
}
