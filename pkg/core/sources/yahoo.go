package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bhsi/pkg/models"
)

// yahooTicker is one row of the sector-organized lookup table below.
type yahooTicker struct {
	company string
	ticker  string
	sector  string
}

// tickerTable is a small, sector-organized seed list of Spanish listed
// companies. It is consulted before any live provider search, per
// SPEC_FULL.md §4.2's "known tickers first, resolve on miss" contract.
var tickerTable = []yahooTicker{
	{"Banco Santander", "SAN.MC", "Banking"},
	{"BBVA", "BBVA.MC", "Banking"},
	{"CaixaBank", "CABK.MC", "Banking"},
	{"Iberdrola", "IBE.MC", "Utilities"},
	{"Endesa", "ELE.MC", "Utilities"},
	{"Repsol", "REP.MC", "Energy"},
	{"Telefonica", "TEF.MC", "Telecom"},
	{"Inditex", "ITX.MC", "Retail"},
	{"Amadeus IT Group", "AMS.MC", "Technology"},
	{"Ferrovial", "FER.MC", "Construction"},
	{"ACS", "ACS.MC", "Construction"},
	{"Mapfre", "MAP.MC", "Insurance"},
}

// quoteResolver optionally turns a company name the ticker table doesn't
// know into a best-guess name, e.g. backed by an LLM /generate call.
// Nil disables the step (SPEC_FULL.md §4.2 "optional LLM-assisted resolve").
type quoteResolver interface {
	ResolveCompanyName(ctx context.Context, query string) (string, error)
}

// quoteProvider fetches live quote + fundamentals for a resolved ticker.
type quoteProvider interface {
	Quote(ctx context.Context, ticker string) (yahooQuote, error)
}

type yahooQuote struct {
	Price7dAgo      float64
	PriceNow        float64
	RevenueThisYear float64
	RevenueLastYear float64
}

// YahooFinanceAdapter resolves a company name to a ticker (known table,
// then optional LLM resolve, then the query itself used as the ticker
// symbol when a provider is configured), fetches live quote
// data, and emits a single synthetic Record carrying computed risk
// indicators (SPEC_FULL.md §4.2).
type YahooFinanceAdapter struct {
	provider quoteProvider
	resolver quoteResolver
}

func NewYahooFinanceAdapter(provider quoteProvider, resolver quoteResolver) *YahooFinanceAdapter {
	return &YahooFinanceAdapter{provider: provider, resolver: resolver}
}

func (a *YahooFinanceAdapter) Name() models.Source { return models.SourceYahooFinance }

func (a *YahooFinanceAdapter) Search(ctx context.Context, query string, window Window) models.SourceResult {
	ticker, sector, ok := lookupTicker(query)
	if !ok && a.resolver != nil {
		resolved, err := a.resolver.ResolveCompanyName(ctx, query)
		if err == nil && resolved != "" {
			ticker, sector, ok = lookupTicker(resolved)
		}
	}
	if !ok && a.provider != nil {
		// Fall back to treating the query itself as a ticker symbol.
		ticker, sector, ok = query, "Unknown", true
	}
	if !ok {
		return errResult(models.SourceYahooFinance, query, "no ticker match found")
	}

	q, err := a.provider.Quote(ctx, ticker)
	if err != nil {
		return errResult(models.SourceYahooFinance, query, fmt.Sprintf("fetching quote for %s: %v", ticker, err))
	}

	priceChange7d := safePercentChange(q.Price7dAgo, q.PriceNow)
	revenueChangeYoY := safePercentChange(q.RevenueLastYear, q.RevenueThisYear)
	indicator := riskIndicator(priceChange7d, revenueChangeYoY)

	record := models.Record{
		Title:       fmt.Sprintf("%s financial snapshot", query),
		Text:        fmt.Sprintf("price_change_7d=%.2f%% revenue_change_yoy=%.2f%% risk_indicator=%s", priceChange7d, revenueChangeYoY, indicator),
		PublishedAt: time.Now(),
		Extra: map[string]string{
			"ticker":              ticker,
			"sector":              sector,
			"price_change_7d":     strconv.FormatFloat(priceChange7d, 'f', 2, 64),
			"revenue_change_yoy":  strconv.FormatFloat(revenueChangeYoY, 'f', 2, 64),
			"risk_indicator":      indicator,
		},
	}

	return models.SourceResult{
		Summary: models.SourceSummary{Query: query, Source: models.SourceYahooFinance, TotalResults: 1},
		Records: []models.Record{record},
	}
}

func lookupTicker(query string) (ticker, sector string, ok bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	best := 0.0
	for _, row := range tickerTable {
		score := similarity(strings.ToLower(row.company), q)
		if score > best {
			best, ticker, sector = score, row.ticker, row.sector
		}
	}
	return ticker, sector, best >= 0.8
}

// similarity returns a 0..1 score, 1 for exact match, degrading with
// normalized Levenshtein distance otherwise.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// safePercentChange computes (to-from)/from*100, sanitizing NaN/Inf results
// from a zero or malformed baseline to 0, per SPEC_FULL.md §4.2.
func safePercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	v := (to - from) / from * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// riskIndicator sums per-indicator severity (price drop >5%/>10%, revenue
// decline <-10%/<-20% YoY; +3 per high indicator, +1 per medium) and maps
// the total to the three-level scale the classifier/assessment stages
// expect as plain text: "high" if sum>=3, "medium" if sum>=1, "low" otherwise.
func riskIndicator(priceChange7d, revenueChangeYoY float64) string {
	score := 0
	switch {
	case priceChange7d < -10:
		score += 3
	case priceChange7d < -5:
		score += 1
	}
	switch {
	case revenueChangeYoY < -20:
		score += 3
	case revenueChangeYoY < -10:
		score += 1
	}

	switch {
	case score >= 3:
		return "high"
	case score >= 1:
		return "medium"
	default:
		return "low"
	}
}

// httpQuoteProvider is the live quoteProvider, calling out to a Yahoo
// Finance-compatible chart endpoint. It reads prices only: the revenue
// fields of the quote are left at 0, so revenue_change_yoy is 0 for live
// quotes.
type httpQuoteProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPQuoteProvider(baseURL string, client *http.Client) *httpQuoteProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpQuoteProvider{baseURL: baseURL, client: client}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice     float64 `json:"regularMarketPrice"`
				ChartPreviousClose     float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

func (p *httpQuoteProvider) Quote(ctx context.Context, ticker string) (yahooQuote, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/%s", p.baseURL, ticker)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return yahooQuote{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return yahooQuote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return yahooQuote{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var parsed yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return yahooQuote{}, fmt.Errorf("decoding chart response: %w", err)
	}
	if len(parsed.Chart.Result) == 0 {
		return yahooQuote{}, fmt.Errorf("empty chart result for %s", ticker)
	}

	res := parsed.Chart.Result[0]
	q := yahooQuote{PriceNow: res.Meta.RegularMarketPrice}
	if len(res.Indicators.Quote) > 0 && len(res.Indicators.Quote[0].Close) >= 7 {
		closes := res.Indicators.Quote[0].Close
		q.Price7dAgo = closes[len(closes)-7]
	} else {
		q.Price7dAgo = res.Meta.ChartPreviousClose
	}
	return q, nil
}
