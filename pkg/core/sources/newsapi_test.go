package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewsAPISearchParsesArticlesAndClampsWindow(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("from")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","articles":[
			{"title":"Multa a Ejemplo SA","description":"desc","content":"full text","url":"https://news/1","publishedAt":"2026-07-30T10:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	a := NewNewsAPIAdapter(srv.URL, "key", srv.Client())
	win := Window{DaysBack: 90} // exceeds 30-day clamp

	res := a.Search(context.Background(), "Ejemplo SA", win)

	if len(res.Summary.Errors) != 1 {
		t.Fatalf("expected the 30-day clamp to surface a caller-visible error, got: %v", res.Summary.Errors)
	}
	if len(res.Records) != 1 || res.Records[0].Text != "full text" {
		t.Fatalf("unexpected records: %+v", res.Records)
	}

	clampedFrom, _ := time.Parse("2006-01-02", gotQuery)
	if time.Since(clampedFrom) > 31*24*time.Hour {
		t.Errorf("expected from date clamped to ~30 days back, got %s", gotQuery)
	}
}

func TestNewsAPISearchSurfacesUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","articles":[]}`))
	}))
	defer srv.Close()

	a := NewNewsAPIAdapter(srv.URL, "key", srv.Client())
	res := a.Search(context.Background(), "x", Window{DaysBack: 1})

	if len(res.Summary.Errors) == 0 {
		t.Error("expected upstream error status to surface in summary.errors")
	}
}
