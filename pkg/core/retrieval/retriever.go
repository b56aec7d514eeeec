// Package retrieval implements Retriever and RAGSynthesizer of
// SPEC_FULL.md §4.10: embed the question, consult VectorStore, build a
// grounded prompt, and call the LLM's /generate endpoint.
package retrieval

import (
	"context"
	"fmt"

	"bhsi/pkg/core/vectorstore"
)

// Embedder is the capability Retriever needs to turn a question into a
// vector; llm.HTTPEmbedder satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher is the capability Retriever needs from VectorStore.
type VectorSearcher interface {
	Search(ctx context.Context, queryVec []float32, k int, filters vectorstore.Filters) ([]vectorstore.Hit, error)
}

// Retriever embeds a question and returns the top-k matching documents.
type Retriever struct {
	embedder Embedder
	store    VectorSearcher
}

func NewRetriever(embedder Embedder, store VectorSearcher) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds question and fetches maxDocuments top hits, optionally
// filtered to one company (SPEC_FULL.md §4.10 steps 1-2).
func (r *Retriever) Retrieve(ctx context.Context, question string, maxDocuments int, companyFilter string) ([]vectorstore.Hit, error) {
	if maxDocuments < 1 {
		maxDocuments = 1
	}
	if maxDocuments > 10 {
		maxDocuments = 10
	}

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embedding question: %w", err)
	}

	hits, err := r.store.Search(ctx, vec, maxDocuments, vectorstore.Filters{CompanyName: companyFilter})
	if err != nil {
		return nil, fmt.Errorf("retrieval: searching vector store: %w", err)
	}
	return hits, nil
}
