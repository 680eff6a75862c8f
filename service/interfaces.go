package service

import (
	"context"

	"officialqa-backend/models"
)

// VectorStore persists chunk embeddings and answers nearest-neighbour queries.
// Implemented by repository.EmbeddingRepository and the vectorstore package.
type VectorStore interface {
	Dimensions() int
	Exists(ctx context.Context, entityID int64, chunkType models.ChunkType) (bool, error)
	Upsert(ctx context.Context, chunk models.Chunk, vec []float32) (models.UpsertOutcome, error)
	Query(ctx context.Context, vec []float32, k int, nameFilter string) (models.QueryResult, error)
	Stats(ctx context.Context) (models.IndexStatus, error)
	Purge(ctx context.Context, entityID int64) (int, error)
}

// Flusher is implemented by stores that buffer writes.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Initializer is implemented by stores that need schema setup.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// EntitySource provides the official records that get indexed.
type EntitySource interface {
	GetEntity(ctx context.Context, id int64) (*models.Official, error)
	ListEntityIDs(ctx context.Context) ([]int64, error)
}
