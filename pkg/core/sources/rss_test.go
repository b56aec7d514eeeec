package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const rssFixtureTemplate = `<?xml version="1.0" encoding="us-ascii"?>
<rss><channel>
<item>
  <title>Sanci&#243;n a Ejemplo SA por la CNMV</title>
  <description>&lt;p&gt;La CNMV impuso una multa &lt;b&gt;ayer&lt;/b&gt;.&lt;/p&gt;</description>
  <link>https://example.com/1</link>
  <pubDate>%s</pubDate>
</item>
<item>
  <title>Resultado deportivo sin relacion</title>
  <description>Partido de futbol.</description>
  <link>https://example.com/2</link>
  <pubDate>%s</pubDate>
</item>
</channel></rss>`

func TestRSSSearchNormalizesEncodingStripsHTMLAndFilters(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC1123Z)
	body := fmt.Sprintf(rssFixtureTemplate, now, now)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	a := NewRSSAdapter("elpais", srv.URL, srv.Client())
	res := a.Search(context.Background(), "CNMV multa", Window{DaysBack: 7})

	if len(res.Summary.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Summary.Errors)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 matching record, got %d: %+v", len(res.Records), res.Records)
	}
	if res.Records[0].Text != "La CNMV impuso una multa ayer ." && res.Records[0].Text != "La CNMV impuso una multa ayer." {
		t.Errorf("expected HTML-stripped description text, got %q", res.Records[0].Text)
	}
}

func TestRSSSearchFlagsUnparsableDate(t *testing.T) {
	body := fmt.Sprintf(rssFixtureTemplate, "not-a-date", "not-a-date")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	a := NewRSSAdapter("elmundo", srv.URL, srv.Client())
	res := a.Search(context.Background(), "CNMV", Window{DaysBack: 7})

	if len(res.Records) != 1 || !res.Records[0].DateParseError {
		t.Fatalf("expected the matching record to be flagged DateParseError, got %+v", res.Records)
	}
}
