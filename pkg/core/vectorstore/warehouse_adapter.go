package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"bhsi/pkg/core/warehouse"
	"bhsi/pkg/models"
)

// WarehouseAdapter adapts the warehouse store's raw candidate rows into
// ranked Hits, decoding each stored vector and scoring it against the
// query via cosine similarity client-side (SPEC_FULL.md §4.9).
type WarehouseAdapter struct {
	store *warehouse.Store
}

func NewWarehouseAdapter(store *warehouse.Store) *WarehouseAdapter {
	return &WarehouseAdapter{store: store}
}

func (a *WarehouseAdapter) UpsertVector(ctx context.Context, eventID string, encoded []byte, dimension int, model string, v models.Vector) error {
	return a.store.UpsertVector(ctx, eventID, encoded, dimension, model, v)
}

func (a *WarehouseAdapter) SearchVectors(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error) {
	candidates, err := a.store.SearchVectors(ctx, queryVec, k, filters.CompanyName, filters.RiskLevel, filters.Source)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: warehouse search: %w", err)
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		vec := DecodeVector(c.Encoded)
		hits = append(hits, Hit{
			ID:    c.EventID,
			Score: CosineSimilarity(queryVec, vec),
			Metadata: map[string]string{
				"company_name": c.CompanyName,
				"risk_level":   c.RiskLevel,
				"source":       c.Source,
				"title":        c.Title,
			},
			Document: c.TextSummary,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
