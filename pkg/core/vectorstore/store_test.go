package vectorstore

import (
	"context"
	"testing"

	"bhsi/pkg/models"
)

type fakeWarehouse struct {
	upserted []string
	hits     []Hit
	err      error
}

func (f *fakeWarehouse) UpsertVector(ctx context.Context, eventID string, encoded []byte, dimension int, model string, v models.Vector) error {
	f.upserted = append(f.upserted, eventID)
	return f.err
}

func (f *fakeWarehouse) SearchVectors(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error) {
	return f.hits, f.err
}

type fakeLocal struct {
	hits []Hit
}

func (f *fakeLocal) Add(ctx context.Context, id string, vec []float32, metadata map[string]string, document string) error {
	return nil
}

func (f *fakeLocal) Search(ctx context.Context, queryVec []float32, k int, filters Filters) ([]Hit, error) {
	return f.hits, nil
}

func TestAddSucceedsWhenOnlyWarehouseConfigured(t *testing.T) {
	wh := &fakeWarehouse{}
	s := New(wh, nil, nil, "test-model")

	err := s.Add(context.Background(), "BOE:abc", []float32{1, 0, 0}, nil, "doc", models.Vector{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wh.upserted) != 1 || wh.upserted[0] != "BOE:abc" {
		t.Errorf("expected warehouse upsert to be called, got %v", wh.upserted)
	}
}

func TestSearchMergesByMaxScoreAcrossBackends(t *testing.T) {
	wh := &fakeWarehouse{hits: []Hit{{ID: "a", Score: 0.5}, {ID: "b", Score: 0.9}}}
	local := &fakeLocal{hits: []Hit{{ID: "a", Score: 0.8}}}
	s := New(wh, local, nil, "test-model")

	hits, err := s.Search(context.Background(), []float32{1, 0}, 2, Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits after top-k truncation, got %d", len(hits))
	}
	if hits[0].ID != "b" || hits[0].Score != 0.9 {
		t.Errorf("expected b (0.9) first, got %+v", hits[0])
	}
	if hits[1].ID != "a" || hits[1].Score != 0.8 {
		t.Errorf("expected a's max score 0.8 (local beats warehouse's 0.5), got %+v", hits[1])
	}
}

func TestSearchErrorsOnlyWhenAllBackendsFail(t *testing.T) {
	wh := &fakeWarehouse{err: errBoom{}}
	s := New(wh, nil, nil, "test-model")

	_, err := s.Search(context.Background(), []float32{1}, 1, Filters{})
	if err == nil {
		t.Error("expected an error when the only configured backend fails")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestEncodeDecodeVectorRoundTrips(t *testing.T) {
	original := []float32{0.1, -2.5, 3.333, 0}
	decoded := DecodeVector(EncodeVector(original))
	if len(decoded) != len(original) {
		t.Fatalf("length mismatch: %d vs %d", len(decoded), len(original))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("index %d: expected %v, got %v", i, original[i], decoded[i])
		}
	}
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, 2, 3}
	if sim := CosineSimilarity(v, v); sim < 0.999 || sim > 1.001 {
		t.Errorf("expected ~1.0 for identical vectors, got %v", sim)
	}
}

func TestCosineSimilarityOrthogonalVectorsIsZero(t *testing.T) {
	if sim := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); sim != 0 {
		t.Errorf("expected 0 for orthogonal vectors, got %v", sim)
	}
}
