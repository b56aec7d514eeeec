// Package vectorstore implements the hybrid vector storage of
// SPEC_FULL.md §4.9: a warehouse-of-record tier (always present), an
// optional local ANN index backed by chromem-go, and an optional remote
// vector service. This makes real the reference codebase's own
// placeholder comment in its now-removed knowledge store ("Placeholder:
// In production, use cosine similarity search with pgvector... For now,
// return first N chunks") instead of leaving it unimplemented.
package vectorstore

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"bhsi/pkg/models"
)

// Hit is one ranked search result, merged across backends.
type Hit struct {
	ID       string
	Score    float64
	Metadata map[string]string
	Document string
}

// Filters narrows a search, per SPEC_FULL.md §4.9.
type Filters struct {
	CompanyName string
	RiskLevel   string
	Source      string
}

// warehouseBackend is the always-present tier: vectors written to and read
// from the columnar store of record.
type warehouseBackend interface {
	UpsertVector(ctx context.Context, eventID string, encoded []byte, dimension int, model string, v models.Vector) error
	SearchVectors(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error)
}

// localIndex is the optional embeddable ANN tier, backed by chromem-go.
type localIndex interface {
	Add(ctx context.Context, id string, vec []float32, metadata map[string]string, document string) error
	Search(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error)
}

// remoteService is the optional external vector-service tier, a plain HTTP
// client (see RemoteHTTP for the endpoints it calls).
type remoteService interface {
	Add(ctx context.Context, id string, vec []float32, metadata map[string]string, document string) error
	Search(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error)
}

// Store coordinates the three tiers. Only warehouse is required; local and
// remote are both optional and may be nil.
type Store struct {
	warehouse warehouseBackend
	local     localIndex
	remote    remoteService
	model     string
}

func New(warehouse warehouseBackend, local localIndex, remote remoteService, embeddingModel string) *Store {
	return &Store{warehouse: warehouse, local: local, remote: remote, model: embeddingModel}
}

// Add writes a vector to every configured backend concurrently. Success
// requires at least the warehouse write to succeed (SPEC_FULL.md §4.9).
func (s *Store) Add(ctx context.Context, eventID string, vec []float32, metadata map[string]string, document string, v models.Vector) error {
	encoded := EncodeVector(vec)

	var wg sync.WaitGroup
	var warehouseErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		warehouseErr = s.warehouse.UpsertVector(ctx, eventID, encoded, len(vec), s.model, v)
	}()

	if s.local != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.local.Add(ctx, eventID, vec, metadata, document); err != nil {
				fmt.Printf("[VECTORSTORE] local index add failed for %s: %v\n", eventID, err)
			}
		}()
	}
	if s.remote != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.remote.Add(ctx, eventID, vec, metadata, document); err != nil {
				fmt.Printf("[VECTORSTORE] remote service add failed for %s: %v\n", eventID, err)
			}
		}()
	}
	wg.Wait()

	if warehouseErr != nil {
		return fmt.Errorf("vectorstore: warehouse write failed: %w", warehouseErr)
	}
	return nil
}

// Search fans out to every configured backend in parallel, merges by
// deduplicating on ID and retaining the max score, and returns the top-k
// sorted descending by score (SPEC_FULL.md §4.9).
func (s *Store) Search(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error) {
	type backendResult struct {
		hits []Hit
		err  error
	}

	backends := []func() backendResult{
		func() backendResult {
			hits, err := s.warehouse.SearchVectors(ctx, queryVec, k, filters)
			return backendResult{hits, err}
		},
	}
	if s.local != nil {
		backends = append(backends, func() backendResult {
			hits, err := s.local.Search(ctx, queryVec, k, filters)
			return backendResult{hits, err}
		})
	}
	if s.remote != nil {
		backends = append(backends, func() backendResult {
			hits, err := s.remote.Search(ctx, queryVec, k, filters)
			return backendResult{hits, err}
		})
	}

	results := make([]backendResult, len(backends))
	var wg sync.WaitGroup
	for i, b := range backends {
		i, b := i, b
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = b()
		}()
	}
	wg.Wait()

	merged := map[string]Hit{}
	var sawSuccess bool
	for _, r := range results {
		if r.err != nil {
			fmt.Printf("[VECTORSTORE] backend search failed, treating as empty: %v\n", r.err)
			continue
		}
		sawSuccess = true
		for _, h := range r.hits {
			if existing, ok := merged[h.ID]; !ok || h.Score > existing.Score {
				merged[h.ID] = h
			}
		}
	}
	if !sawSuccess {
		return nil, fmt.Errorf("vectorstore: all backends failed")
	}

	out := make([]Hit, 0, len(merged))
	for _, h := range merged {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// MigrationStats is the return shape of Migrate.
type MigrationStats struct {
	Migrated int
	Failed   int
	Total    int
}

// Migrate copies vectors from the local ANN index into the warehouse,
// per SPEC_FULL.md §4.9. It is a no-op returning a zero-total stat when no
// local index is configured.
func (s *Store) Migrate(ctx context.Context, source LocalIndexLister) MigrationStats {
	if s.local == nil || source == nil {
		return MigrationStats{}
	}

	entries := source.ListAll()
	stats := MigrationStats{Total: len(entries)}
	for _, e := range entries {
		encoded := EncodeVector(e.Vector)
		v := models.Vector{EventID: e.ID, Dimension: len(e.Vector)}
		if err := s.warehouse.UpsertVector(ctx, e.ID, encoded, len(e.Vector), s.model, v); err != nil {
			stats.Failed++
			continue
		}
		stats.Migrated++
	}
	return stats
}

// LocalIndexEntry is one vector read back out of the local ANN index during
// migration.
type LocalIndexEntry struct {
	ID     string
	Vector []float32
}

// LocalIndexLister lets Migrate enumerate the local index's contents
// without the Store needing chromem-go's concrete type.
type LocalIndexLister interface {
	ListAll() []LocalIndexEntry
}

// EncodeVector serializes vec as a raw (not base64) little-endian float32
// byte array. Add and Migrate hand this raw form to the warehouse, so that
// is the warehouse's stored vector representation.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is EncodeVector's inverse.
func DecodeVector(raw []byte) []float32 {
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec
}

// EncodeVectorBase64 and DecodeVectorBase64 are convenience wrappers around
// EncodeVector/DecodeVector for callers storing the text-encoded form
// directly (e.g. a JSON payload), rather than raw bytes.
func EncodeVectorBase64(vec []float32) string {
	return base64.StdEncoding.EncodeToString(EncodeVector(vec))
}

func DecodeVectorBase64(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: decoding base64 vector: %w", err)
	}
	return DecodeVector(raw), nil
}

// CosineSimilarity computes cosine similarity between a and b. Backends
// that return a distance instead MUST convert via 1-distance before
// reaching this package (SPEC_FULL.md §4.9).
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
