package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPProviderGenerateResponseParsesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "respuesta generada"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, srv.Client())
	out, err := p.GenerateResponse(context.Background(), "prompt", "system", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "respuesta generada" {
		t.Errorf("expected parsed text field, got %q", out)
	}
}

func TestHTTPProviderGenerateResponseFallsBackToBareBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text reply, not JSON"))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, srv.Client())
	out, err := p.GenerateResponse(context.Background(), "prompt", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "plain text reply, not JSON" {
		t.Errorf("expected raw body fallback, got %q", out)
	}
}

func TestHTTPEmbedderEmbedReturnsVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding": [0.1, 0.2, 0.3]}`))
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, srv.Client())
	vec, err := e.Embed(context.Background(), "texto de ejemplo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}
}
