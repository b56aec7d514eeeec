package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const boeFixture = `{
  "data": {
    "sumario": {
      "diario": [
        {
          "seccion": [
            {
              "codigo": "5A",
              "nombre": "Anuncios",
              "departamento": [
                {
                  "epigrafe": [
                    {
                      "disposicion": [
                        {"identificador":"BOE-A-2026-1","titulo":"Concurso de acreedores de Ejemplo SA","url_html":"https://boe.es/x","fecha_publicacion":"2026-07-30"},
                        {"identificador":"BOE-A-2026-2","titulo":"Nombramiento de nuevo secretario","url_html":"https://boe.es/y","fecha_publicacion":"2026-07-30"}
                      ]
                    }
                  ]
                }
              ]
            }
          ]
        }
      ]
    }
  }
}`

func TestBOESearchFiltersByQueryAndToleratesNotFound(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(boeFixture))
	}))
	defer srv.Close()

	a := NewBOEAdapter(srv.URL, srv.Client())
	win := Window{StartDate: "2026-07-29", EndDate: "2026-07-30"}

	res := a.Search(context.Background(), "acreedores", win)

	if len(res.Summary.Errors) != 0 {
		t.Fatalf("expected the 404 day to be tolerated silently, got errors %v", res.Summary.Errors)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected exactly 1 matching record, got %d: %+v", len(res.Records), res.Records)
	}
	if !strings.Contains(res.Records[0].Title, "Concurso") {
		t.Errorf("unexpected record matched: %+v", res.Records[0])
	}
}

func TestBOESearchSurfacesNonNotFoundErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewBOEAdapter(srv.URL, srv.Client())
	win := Window{DaysBack: 1}

	res := a.Search(context.Background(), "x", win)
	if len(res.Summary.Errors) == 0 {
		t.Error("expected a 500 response to surface as a summary error")
	}
}

func TestWindowResolveFallsBackOnUnparsableDates(t *testing.T) {
	w := Window{StartDate: "bad", EndDate: "bad"}
	start, end := w.Resolve(7)
	if end.Sub(start) < 6*24*time.Hour {
		t.Errorf("expected ~7 day fallback window, got %v", end.Sub(start))
	}
}
