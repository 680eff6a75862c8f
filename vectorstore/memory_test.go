package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"officialqa-backend/embedding"
	"officialqa-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id int64, name string, t models.ChunkType, content string) models.Chunk {
	return models.Chunk{EntityID: id, EntityName: name, Type: t, Content: content}
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	outcome, err := s.Upsert(ctx, chunk(1, "Jane Doe", models.ChunkTypeProfile, "a"), []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, models.UpsertInserted, outcome)

	outcome, err = s.Upsert(ctx, chunk(1, "Jane Doe", models.ChunkTypeProfile, "changed"), []float32{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, models.UpsertSkipped, outcome)

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Content)

	exists, err := s.Exists(ctx, 1, models.ChunkTypeProfile)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists(ctx, 1, models.ChunkTypeLegal)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	_, err := s.Upsert(ctx, chunk(1, "A", models.ChunkTypeProfile, "a"), []float32{1, 0})
	assert.True(t, errors.Is(err, embedding.ErrDimensionMismatch))

	_, err = s.Query(ctx, []float32{1}, 5, "")
	assert.True(t, errors.Is(err, embedding.ErrDimensionMismatch))
}

func TestMemoryStore_RejectsInvalidChunkType(t *testing.T) {
	s := NewMemoryStore(2)
	_, err := s.Upsert(context.Background(), chunk(1, "A", models.ChunkType(42), "a"), []float32{1, 0})
	assert.Error(t, err)
}

func TestMemoryStore_QueryOrdering(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	vectors := [][]float32{{1, 0}, {0.6, 0.8}, {0, 1}, {0.8, 0.6}}
	for i, v := range vectors {
		_, err := s.Upsert(ctx, chunk(int64(i+1), fmt.Sprintf("Official %d", i+1), models.ChunkTypeProfile, "c"), v)
		require.NoError(t, err)
	}

	result, err := s.Query(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, result, 4)
	for i := 1; i < len(result); i++ {
		assert.GreaterOrEqual(t, result[i-1].Similarity, result[i].Similarity)
	}
	assert.Equal(t, int64(1), result[0].Chunk.EntityID)
	assert.InDelta(t, 1.0, result[0].Similarity, 1e-9)
	assert.Equal(t, int64(4), result[1].Chunk.EntityID)
}

func TestMemoryStore_TiesBrokenByInsertionOrder(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	for _, id := range []int64{7, 3, 9} {
		_, err := s.Upsert(ctx, chunk(id, "Same", models.ChunkTypeProfile, "c"), []float32{1, 1})
		require.NoError(t, err)
	}

	result, err := s.Query(ctx, []float32{1, 1}, 3, "")
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, int64(7), result[0].Chunk.EntityID)
	assert.Equal(t, int64(3), result[1].Chunk.EntityID)
	assert.Equal(t, int64(9), result[2].Chunk.EntityID)
}

func TestMemoryStore_QueryLimitAndFilter(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	_, _ = s.Upsert(ctx, chunk(1, "Jane Doe", models.ChunkTypeProfile, "a"), []float32{1, 0})
	_, _ = s.Upsert(ctx, chunk(1, "Jane Doe", models.ChunkTypeFinancial, "b"), []float32{0.9, 0.1})
	_, _ = s.Upsert(ctx, chunk(2, "John Roe", models.ChunkTypeProfile, "c"), []float32{1, 0})
	_, _ = s.Upsert(ctx, chunk(3, "Mary Jane Doevski", models.ChunkTypeProfile, "d"), []float32{0, 1})

	result, err := s.Query(ctx, []float32{1, 0}, 2, "")
	require.NoError(t, err)
	assert.Len(t, result, 2)

	result, err = s.Query(ctx, []float32{1, 0}, 10, "jane DOE")
	require.NoError(t, err)
	require.Len(t, result, 3)
	for _, r := range result {
		assert.Contains(t, []int64{1, 3}, r.Chunk.EntityID)
	}

	result, err = s.Query(ctx, []float32{1, 0}, 0, "")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestMemoryStore_EmptyQuery(t *testing.T) {
	s := NewMemoryStore(2)
	result, err := s.Query(context.Background(), []float32{1, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestMemoryStore_StatsAndPurge(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	_, _ = s.Upsert(ctx, chunk(1, "A", models.ChunkTypeProfile, "a"), []float32{1, 0})
	_, _ = s.Upsert(ctx, chunk(1, "A", models.ChunkTypeLegal, "b"), []float32{1, 0})
	_, _ = s.Upsert(ctx, chunk(2, "B", models.ChunkTypeProfile, "c"), []float32{1, 0})

	status, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.TotalEmbeddings)
	assert.Equal(t, 2, status.EntitiesIndexed)
	assert.Equal(t, 2, status.ByChunkType[models.ChunkTypeProfile])
	assert.Equal(t, 1, status.ByChunkType[models.ChunkTypeLegal])

	removed, err := s.Purge(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	status, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalEmbeddings)
	assert.Equal(t, 1, status.EntitiesIndexed)

	outcome, err := s.Upsert(ctx, chunk(1, "A", models.ChunkTypeProfile, "a"), []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, models.UpsertInserted, outcome)
}

func TestMemoryStore_StoredVectorIsCopied(t *testing.T) {
	s := NewMemoryStore(2)
	vec := []float32{1, 0}
	_, err := s.Upsert(context.Background(), chunk(1, "A", models.ChunkTypeProfile, "a"), vec)
	require.NoError(t, err)

	vec[0] = 0
	assert.Equal(t, float32(1), s.Records()[0].Embedding[0])
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := s.Upsert(ctx, chunk(int64(i%5), "X", models.ChunkTypeProfile, "c"), []float32{1, 0})
			if err == nil && outcome == models.UpsertInserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, inserted)
	assert.Len(t, s.Records(), 5)
}

func TestMemoryStore_RestoreKeepsOrder(t *testing.T) {
	src := NewMemoryStore(2)
	ctx := context.Background()
	_, _ = src.Upsert(ctx, chunk(5, "E", models.ChunkTypeProfile, "a"), []float32{1, 0})
	_, _ = src.Upsert(ctx, chunk(2, "B", models.ChunkTypeProfile, "b"), []float32{1, 0})

	dst := NewMemoryStore(2)
	require.NoError(t, dst.Restore(src.Records()))

	records := dst.Records()
	require.Len(t, records, 2)
	assert.Equal(t, int64(5), records[0].EntityID)
	assert.Equal(t, int64(2), records[1].EntityID)

	bad := NewMemoryStore(3)
	assert.True(t, errors.Is(bad.Restore(src.Records()), embedding.ErrDimensionMismatch))
}
