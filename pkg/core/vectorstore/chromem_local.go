package vectorstore

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemLocal is the optional local ANN index tier, an embeddable
// pure-Go vector index that avoids a network round trip for small/medium
// corpora (SPEC_FULL.md §1B, §4.9).
type ChromemLocal struct {
	collection *chromem.Collection
}

// NewChromemLocal creates a named collection in a fresh in-memory chromem DB.
// Embeddings are supplied by the caller (no embedding func registered),
// since the caller already calls the remote embed service.
func NewChromemLocal(collectionName string) (*ChromemLocal, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: creating chromem collection: %w", err)
	}
	return &ChromemLocal{collection: col}, nil
}

func (c *ChromemLocal) Add(ctx context.Context, id string, vec []float32, metadata map[string]string, document string) error {
	return c.collection.AddDocument(ctx, chromem.Document{
		ID:        id,
		Embedding: vec,
		Metadata:  metadata,
		Content:   document,
	})
}

func (c *ChromemLocal) Search(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error) {
	where := map[string]string{}
	if filters.CompanyName != "" {
		where["company_name"] = filters.CompanyName
	}
	if filters.RiskLevel != "" {
		where["risk_level"] = filters.RiskLevel
	}
	if filters.Source != "" {
		where["source"] = filters.Source
	}

	n := k
	if count := c.collection.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := c.collection.QueryEmbedding(ctx, queryVec, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: chromem query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{ID: r.ID, Score: float64(r.Similarity), Metadata: r.Metadata, Document: r.Content})
	}
	return hits, nil
}

// ListAll enumerates every document in the collection for Store.Migrate.
func (c *ChromemLocal) ListAll() []LocalIndexEntry {
	docs := c.collection.Documents()
	entries := make([]LocalIndexEntry, 0, len(docs))
	for id, d := range docs {
		entries = append(entries, LocalIndexEntry{ID: id, Vector: d.Embedding})
	}
	return entries
}
