package sources

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bhsi/pkg/models"
)

// RSSOutlets lists the eight Spanish press feeds enumerated in
// SPEC_FULL.md §4.2. Each becomes its own models.Source via RSSSource.
var RSSOutlets = []string{
	"elpais", "elmundo", "expansion", "cincodias",
	"abc", "lavanguardia", "eleconomista", "europapress",
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// RSSAdapter fetches one named outlet's feed URL and filters items whose
// title or description mentions the query. The same implementation serves
// all eight outlets, parameterized by outlet+feedURL (SPEC_FULL.md §4.2).
type RSSAdapter struct {
	outlet  string
	feedURL string
	client  *http.Client
}

func NewRSSAdapter(outlet, feedURL string, client *http.Client) *RSSAdapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RSSAdapter{outlet: outlet, feedURL: feedURL, client: client}
}

func (a *RSSAdapter) Name() models.Source { return models.RSSSource(a.outlet) }

func (a *RSSAdapter) Search(ctx context.Context, query string, window Window) models.SourceResult {
	start, end := window.Resolve(7)
	source := models.RSSSource(a.outlet)

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, a.feedURL, nil)
	if err != nil {
		return errResult(source, query, err.Error())
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return errResult(source, query, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errResult(source, query, fmt.Sprintf("status %d", resp.StatusCode))
	}

	body, err := normalizeEncoding(resp)
	if err != nil {
		return errResult(source, query, err.Error())
	}

	var feed rssFeed
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&feed); err != nil {
		return errResult(source, query, fmt.Sprintf("parsing feed: %v", err))
	}

	var records []models.Record
	for _, item := range feed.Channel.Items {
		plainDesc := stripDescriptionHTML(item.Description)
		if !matchesQuery(item.Title, query) && !matchesQuery(plainDesc, query) {
			continue
		}

		published, parseErr := parseFeedDate(item.PubDate)
		if parseErr != nil {
			published = time.Now()
		}
		if published.Before(start) || published.After(end) {
			if parseErr == nil {
				continue
			}
		}

		records = append(records, models.Record{
			Title:          item.Title,
			Text:           plainDesc,
			URL:            item.Link,
			PublishedAt:    published,
			DateParseError: parseErr != nil,
		})
	}

	return models.SourceResult{
		Summary: models.SourceSummary{Query: query, Source: source, TotalResults: len(records)},
		Records: records,
	}
}

// normalizeEncoding rewrites an us-ascii encoding declaration to utf-8, some
// of these feeds mislabel their charset while actually emitting UTF-8 bytes,
// which trips Go's strict xml.Decoder otherwise.
func normalizeEncoding(resp *http.Response) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("reading feed body: %w", err)
	}
	out := bytes.Replace(buf.Bytes(), []byte(`encoding="us-ascii"`), []byte(`encoding="utf-8"`), 1)
	out = bytes.Replace(out, []byte(`encoding="US-ASCII"`), []byte(`encoding="utf-8"`), 1)
	return out, nil
}

// stripDescriptionHTML removes markup from an RSS <description>, which these
// outlets populate with embedded <img>/<a> tags around the actual summary.
func stripDescriptionHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.TrimSpace(doc.Text())
}

var feedDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

func parseFeedDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty or unrecognized date %q", raw)
	}
	return time.Time{}, lastErr
}
