package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bhsi/pkg/models"
)

type newsAPIResponse struct {
	Status   string          `json:"status"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// NewsAPIAdapter issues a single windowed request against NewsAPI's
// everything endpoint, per SPEC_FULL.md §4.2: one query, one date range,
// clamped to NewsAPI's 30-day lookback limit on the free tier.
type NewsAPIAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewNewsAPIAdapter(baseURL, apiKey string, client *http.Client) *NewsAPIAdapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NewsAPIAdapter{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (a *NewsAPIAdapter) Name() models.Source { return models.SourceNewsAPI }

func (a *NewsAPIAdapter) Search(ctx context.Context, query string, window Window) models.SourceResult {
	start, end := window.Resolve(7)

	var clampErr string
	const maxLookbackDays = 30
	if end.Sub(start) > maxLookbackDays*24*time.Hour {
		clampErr = fmt.Sprintf("requested window exceeded NewsAPI's %d-day lookback limit; clamped from %s", maxLookbackDays, start.Format("2006-01-02"))
		start = end.AddDate(0, 0, -maxLookbackDays)
	}

	reqURL := a.buildURL(query, start, end)
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errResult(models.SourceNewsAPI, query, err.Error())
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return errResult(models.SourceNewsAPI, query, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errResult(models.SourceNewsAPI, query, fmt.Sprintf("status %d", resp.StatusCode))
	}

	var parsed newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return errResult(models.SourceNewsAPI, query, fmt.Sprintf("decoding response: %v", err))
	}
	if parsed.Status != "ok" {
		return errResult(models.SourceNewsAPI, query, fmt.Sprintf("upstream status %q", parsed.Status))
	}

	records := make([]models.Record, 0, len(parsed.Articles))
	for _, art := range parsed.Articles {
		published, parseErr := time.Parse(time.RFC3339, art.PublishedAt)
		if parseErr != nil {
			published = time.Now()
		}
		text := art.Content
		if text == "" {
			text = art.Description
		}
		records = append(records, models.Record{
			Title:          art.Title,
			Text:           text,
			URL:            art.URL,
			PublishedAt:    published,
			DateParseError: parseErr != nil,
		})
	}

	var errs []string
	if clampErr != "" {
		errs = append(errs, clampErr)
	}

	return models.SourceResult{
		Summary: models.SourceSummary{Query: query, Source: models.SourceNewsAPI, TotalResults: len(records), Errors: errs},
		Records: records,
	}
}

func (a *NewsAPIAdapter) buildURL(query string, start, end time.Time) string {
	q := url.Values{}
	q.Set("q", query)
	q.Set("from", start.Format("2006-01-02"))
	q.Set("to", end.Format("2006-01-02"))
	q.Set("language", "es")
	q.Set("sortBy", "publishedAt")
	q.Set("apiKey", a.apiKey)
	return a.baseURL + "?" + q.Encode()
}
