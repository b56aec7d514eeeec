// Package llm is the thin HTTP client shared by RAGSynthesizer, Pipeline's
// optional embedding step, and the optional Yahoo Finance name-resolve step.
// It generalizes the reference codebase's pkg/core/llm Provider interface
// (originally three unimplemented vendor stubs — Gemini, DeepSeek, Qwen,
// none returning real output) into one real client against the generic
// wire contract SPEC_FULL.md §6 defines: POST /generate and POST /embed,
// not a vendor SDK (SPEC_FULL.md §1B "remote LLM/embed services").
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bhsi/pkg/core/utils"
)

// Provider is the capability RAGSynthesizer and the Yahoo Finance adapter's
// optional resolve step depend on.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error)
	AdaptInstructions(rawInstructions string) string
}

// HTTPProvider implements Provider against a single /generate endpoint,
// tolerating lenient JSON replies via utils.SmartParse the same way
// LLMClassifier does (SPEC_FULL.md §1B).
type HTTPProvider struct {
	generateURL string
	client      *http.Client
}

func NewHTTPProvider(generateURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPProvider{generateURL: generateURL, client: client}
}

type generateRequest struct {
	Prompt      string                 `json:"prompt"`
	System      string                 `json:"system_prompt,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Temperature float64                `json:"temperature,omitempty"`
	Options     map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// GenerateResponse POSTs prompt+systemPrompt to the configured endpoint and
// returns the raw text reply. options may carry max_tokens/temperature,
// pulled out into top-level fields the wire contract expects.
func (p *HTTPProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	reqBody := generateRequest{Prompt: prompt, System: systemPrompt, Options: options}
	if mt, ok := options["max_tokens"].(int); ok {
		reqBody.MaxTokens = mt
	}
	if temp, ok := options["temperature"].(float64); ok {
		reqBody.Temperature = temp
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("llm: encoding generate request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.generateURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: generate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: generate status %d", resp.StatusCode)
	}

	raw := new(bytes.Buffer)
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		return "", fmt.Errorf("llm: reading generate response: %w", err)
	}

	var parsed generateResponse
	if _, err := utils.SmartParse(raw.String(), &parsed); err != nil {
		// Some deployments return a bare string body rather than {"text": ...}.
		return raw.String(), nil
	}
	return parsed.Text, nil
}

// AdaptInstructions is a no-op passthrough: the generic wire contract takes
// one prompt shape regardless of the backing model.
func (p *HTTPProvider) AdaptInstructions(rawInstructions string) string {
	return rawInstructions
}

// Embedder is the capability Retriever and Pipeline's optional embedding
// step depend on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPEmbedder implements Embedder against a single /embed endpoint.
type HTTPEmbedder struct {
	embedURL string
	client   *http.Client
}

func NewHTTPEmbedder(embedURL string, client *http.Client) *HTTPEmbedder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPEmbedder{embedURL: embedURL, client: client}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Vector []float32 `json:"embedding"`
}

// Embed POSTs text to the embed endpoint and returns the resulting vector,
// bounded to a 30s budget per SPEC_FULL.md §4.10 step 1.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("llm: encoding embed request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.embedURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: embed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: embed status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("llm: decoding embed response: %w", err)
	}
	return parsed.Vector, nil
}

// ResolveCompanyName satisfies sources.quoteResolver, asking the generate
// endpoint to guess a listed company's canonical name from a free-form
// query, for Yahoo Finance's optional LLM-assisted ticker resolve step
// (SPEC_FULL.md §4.2).
func (p *HTTPProvider) ResolveCompanyName(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf("What is the official, internationally listed company name closest to %q? Reply with only the name.", query)
	return p.GenerateResponse(ctx, prompt, "", nil)
}
