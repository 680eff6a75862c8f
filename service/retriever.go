package service

import (
	"context"
	"fmt"
	"sort"

	"officialqa-backend/embedding"
	"officialqa-backend/models"
)

// DefaultTopK is the number of chunks retrieved when the caller does not ask for a count.
const DefaultTopK = 5

// Retriever embeds a question and fetches the closest chunks.
type Retriever struct {
	embedder embedding.Provider
	store    VectorStore
}

// NewRetriever creates a new retriever
func NewRetriever(embedder embedding.Provider, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to k chunks ordered by non-increasing similarity.
// entityName restricts results to officials whose name contains it.
// An empty index yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int, entityName string) (models.QueryResult, error) {
	if r.embedder == nil {
		return nil, ErrEmbedderNotSet
	}
	if r.store == nil {
		return nil, ErrVectorStoreNotSet
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	result, err := r.store.Query(ctx, vec, k, entityName)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}
	if result == nil {
		result = models.QueryResult{}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Similarity > result[j].Similarity
	})
	if len(result) > k {
		result = result[:k]
	}
	return result, nil
}
