package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bhsi/pkg/models"
)

// boeDaySummary is the subset of the BOE daily sumario JSON this adapter
// cares about: a flat list of disposiciones (items) per section.
type boeDaySummary struct {
	Data struct {
		Sumario struct {
			Diario []struct {
				Seccion []struct {
					Codigo    string `json:"codigo"`
					Nombre    string `json:"nombre"`
					Departamento []struct {
						Epigrafe []struct {
							Disposicion []boeItem `json:"disposicion"`
						} `json:"epigrafe"`
					} `json:"departamento"`
				} `json:"seccion"`
			} `json:"diario"`
		} `json:"sumario"`
	} `json:"data"`
}

type boeItem struct {
	Identificador   string `json:"identificador"`
	Titulo          string `json:"titulo"`
	UrlHTML         string `json:"url_html"`
	FechaPublicacion string `json:"fecha_publicacion"`
}

// BOEAdapter fetches the Spanish official gazette's daily summary, one
// request per day in the window, and filters items whose title mentions
// the query.
type BOEAdapter struct {
	baseURL string
	client  *http.Client
}

// NewBOEAdapter constructs a BOEAdapter against baseURL, e.g.
// "https://www.boe.es/datosabiertos/api/boe/sumario".
func NewBOEAdapter(baseURL string, client *http.Client) *BOEAdapter {
	if client == nil {
		client = &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 16}, Timeout: 10 * time.Second}
	}
	return &BOEAdapter{baseURL: baseURL, client: client}
}

func (a *BOEAdapter) Name() models.Source { return models.SourceBOE }

// Search expands the window into one fetch per day, tolerating per-day
// 404/empty responses, per SPEC_FULL.md §4.2's BOE contract.
func (a *BOEAdapter) Search(ctx context.Context, query string, window Window) models.SourceResult {
	start, end := window.Resolve(7)

	var records []models.Record
	var errsSeen []string

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		items, err := a.fetchDay(ctx, day)
		if err != nil {
			errsSeen = append(errsSeen, fmt.Sprintf("%s: %v", day.Format("2006-01-02"), err))
			continue
		}
		for _, sec := range items {
			for _, it := range sec.items {
				if !matchesQuery(it.Titulo, query) {
					continue
				}
				records = append(records, a.toRecord(it, sec.codigo, sec.nombre))
			}
		}
	}

	return models.SourceResult{
		Summary: models.SourceSummary{Query: query, Source: models.SourceBOE, TotalResults: len(records), Errors: errsSeen},
		Records: records,
	}
}

type boeSection struct {
	codigo, nombre string
	items          []boeItem
}

func (a *BOEAdapter) fetchDay(ctx context.Context, day time.Time) ([]boeSection, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/%s", a.baseURL, day.Format("20060102"))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // tolerated: no gazette published that day
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var sum boeDaySummary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		return nil, fmt.Errorf("decoding sumario: %w", err)
	}

	var out []boeSection
	for _, diario := range sum.Data.Sumario.Diario {
		for _, sec := range diario.Seccion {
			var items []boeItem
			for _, dep := range sec.Departamento {
				for _, ep := range dep.Epigrafe {
					items = append(items, ep.Disposicion...)
				}
			}
			if len(items) > 0 {
				out = append(out, boeSection{codigo: sec.Codigo, nombre: sec.Nombre, items: items})
			}
		}
	}
	return out, nil
}

func (a *BOEAdapter) toRecord(it boeItem, seccionCodigo, seccionNombre string) models.Record {
	published, parseErr := time.Parse("2006-01-02", it.FechaPublicacion)
	if parseErr != nil {
		published = time.Now()
	}
	return models.Record{
		Title:          it.Titulo,
		Text:           it.Titulo,
		URL:            it.UrlHTML,
		PublishedAt:    published,
		DateParseError: parseErr != nil,
		Section:        seccionCodigo,
		Extra: map[string]string{
			"identificador":  it.Identificador,
			"seccion_codigo": seccionCodigo,
			"seccion_nombre": seccionNombre,
			"url_html":       it.UrlHTML,
		},
	}
}

func matchesQuery(title, query string) bool {
	title = strings.ToLower(title)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(title, term) {
			return true
		}
	}
	return query == ""
}
