package service

import (
	"context"
	"fmt"

	"github.com/talentsift/talentsift/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkIndex defines the vector index operations the retriever depends on.
type ChunkIndex interface {
	Search(ctx context.Context, collection string, embedding []float32, k int, docType domain.DocType) ([]domain.RetrievedPassage, error)
}

// Retriever embeds a query and fetches the most similar passages from the
// vector index.
type Retriever struct {
	embedding  EmbeddingClient
	index      ChunkIndex
	collection string
}

// NewRetriever creates a new Retriever instance
func NewRetriever(embedding EmbeddingClient, index ChunkIndex, collection string) *Retriever {
	return &Retriever{
		embedding:  embedding,
		index:      index,
		collection: collection,
	}
}

// Retrieve returns up to k passages most similar to queryText, optionally
// restricted to one document type. An empty result is a valid outcome, not an
// error: it means no grounding context exists for the query.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, k int, docType domain.DocType) ([]domain.RetrievedPassage, error) {
	if queryText == "" {
		return []domain.RetrievedPassage{}, nil
	}
	if k <= 0 {
		k = 1
	}

	embedding, err := r.embedding.GenerateEmbedding(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	passages, err := r.index.Search(ctx, r.collection, embedding, k, docType)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	if passages == nil {
		passages = []domain.RetrievedPassage{}
	}
	return passages, nil
}
