package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteHTTP is the optional remote vector-service tier: a plain HTTP
// client used when an external ANN service (e.g. a managed vector
// database) sits alongside the warehouse and local index. It calls
// POST {base}/vectors with {id, vector, metadata, document} and
// POST {base}/vectors/search with {vector, k, filters}, reading {hits: [...]}.
// It does not use the POST /search and POST /embed vector-service contract
// listed in SPEC_FULL.md §6.
type RemoteHTTP struct {
	baseURL string
	client  *http.Client
}

func NewRemoteHTTP(baseURL string, client *http.Client) *RemoteHTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteHTTP{baseURL: baseURL, client: client}
}

type remoteAddRequest struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata"`
	Document string            `json:"document"`
}

func (r *RemoteHTTP) Add(ctx context.Context, id string, vec []float32, metadata map[string]string, document string) error {
	body, err := json.Marshal(remoteAddRequest{ID: id, Vector: vec, Metadata: metadata, Document: document})
	if err != nil {
		return fmt.Errorf("vectorstore: encoding remote add request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.baseURL+"/vectors", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("vectorstore: remote add: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("vectorstore: remote add status %d", resp.StatusCode)
	}
	return nil
}

type remoteSearchRequest struct {
	Vector  []float32 `json:"vector"`
	K       int       `json:"k"`
	Filters Filters   `json:"filters"`
}

type remoteSearchResponse struct {
	Hits []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
		Document string            `json:"document"`
	} `json:"hits"`
}

func (r *RemoteHTTP) Search(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error) {
	body, err := json.Marshal(remoteSearchRequest{Vector: queryVec, K: k, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: encoding remote search request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.baseURL+"/vectors/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: remote search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vectorstore: remote search status %d", resp.StatusCode)
	}

	var parsed remoteSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("vectorstore: decoding remote search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits))
	for _, h := range parsed.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Metadata: h.Metadata, Document: h.Document})
	}
	return hits, nil
}
