// Package vectorstore holds the in-process embedding stores.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"officialqa-backend/embedding"
	"officialqa-backend/models"

	"github.com/google/uuid"
)

type recordKey struct {
	entityID  int64
	chunkType models.ChunkType
}

type entry struct {
	record models.EmbeddingRecord
	seq    uint64
}

// MemoryStore keeps embeddings in memory and answers queries with an exact
// cosine scan. Ties are broken by insertion order.
type MemoryStore struct {
	mu         sync.RWMutex
	dimensions int
	seq        uint64
	entries    map[recordKey]*entry
}

// NewMemoryStore creates an empty store for vectors of the given length.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{
		dimensions: dimensions,
		entries:    make(map[recordKey]*entry),
	}
}

// Dimensions returns the vector length every record must have.
func (s *MemoryStore) Dimensions() int {
	return s.dimensions
}

// Exists reports whether (entityID, chunkType) is already indexed.
func (s *MemoryStore) Exists(_ context.Context, entityID int64, chunkType models.ChunkType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[recordKey{entityID, chunkType}]
	return ok, nil
}

// Upsert inserts the chunk unless the pair is already indexed, in which case
// it is left untouched and UpsertSkipped is returned.
func (s *MemoryStore) Upsert(_ context.Context, chunk models.Chunk, vec []float32) (models.UpsertOutcome, error) {
	if len(vec) != s.dimensions {
		return "", fmt.Errorf("%w: got %d, want %d", embedding.ErrDimensionMismatch, len(vec), s.dimensions)
	}
	if !chunk.Type.Valid() {
		return "", fmt.Errorf("invalid chunk type: %d", int(chunk.Type))
	}

	key := recordKey{chunk.EntityID, chunk.Type}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return models.UpsertSkipped, nil
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	s.seq++
	s.entries[key] = &entry{
		record: models.EmbeddingRecord{
			ID:         uuid.New(),
			EntityID:   chunk.EntityID,
			EntityName: chunk.EntityName,
			ChunkType:  chunk.Type,
			Content:    chunk.Content,
			Embedding:  stored,
			Metadata:   chunk.Metadata,
			CreatedAt:  time.Now().UTC(),
		},
		seq: s.seq,
	}
	return models.UpsertInserted, nil
}

// Query returns the k records most similar to vec, optionally restricted to
// officials whose name contains nameFilter (case-insensitive).
func (s *MemoryStore) Query(_ context.Context, vec []float32, k int, nameFilter string) (models.QueryResult, error) {
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", embedding.ErrDimensionMismatch, len(vec), s.dimensions)
	}
	if k <= 0 {
		return models.QueryResult{}, nil
	}
	filter := strings.ToLower(strings.TrimSpace(nameFilter))

	type scored struct {
		chunk models.ScoredChunk
		seq   uint64
	}

	s.mu.RLock()
	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if filter != "" && !strings.Contains(strings.ToLower(e.record.EntityName), filter) {
			continue
		}
		candidates = append(candidates, scored{
			chunk: models.ScoredChunk{
				Chunk:      e.record.Chunk(),
				Similarity: cosineSimilarity(vec, e.record.Embedding),
			},
			seq: e.seq,
		})
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].chunk.Similarity != candidates[j].chunk.Similarity {
			return candidates[i].chunk.Similarity > candidates[j].chunk.Similarity
		}
		return candidates[i].seq < candidates[j].seq
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	result := make(models.QueryResult, k)
	for i := 0; i < k; i++ {
		result[i] = candidates[i].chunk
	}
	return result, nil
}

// Stats counts indexed records.
func (s *MemoryStore) Stats(_ context.Context) (models.IndexStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := models.IndexStatus{
		TotalEmbeddings: len(s.entries),
		ByChunkType:     make(map[models.ChunkType]int),
	}
	entities := make(map[int64]struct{})
	for key := range s.entries {
		entities[key.entityID] = struct{}{}
		status.ByChunkType[key.chunkType]++
	}
	status.EntitiesIndexed = len(entities)
	return status, nil
}

// Purge removes every record of an official and returns how many were removed.
func (s *MemoryStore) Purge(_ context.Context, entityID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if key.entityID == entityID {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Records returns all records in insertion order.
func (s *MemoryStore) Records() []models.EmbeddingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	records := make([]models.EmbeddingRecord, len(ordered))
	for i, e := range ordered {
		records[i] = e.record
	}
	return records
}

// Restore appends previously saved records, keeping their order. Records for
// pairs that are already present are ignored.
func (s *MemoryStore) Restore(records []models.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if len(rec.Embedding) != s.dimensions {
			return fmt.Errorf("%w: record %s has %d values, want %d",
				embedding.ErrDimensionMismatch, rec.ID, len(rec.Embedding), s.dimensions)
		}
		if !rec.ChunkType.Valid() {
			return errors.New("snapshot contains an invalid chunk type")
		}
		key := recordKey{rec.EntityID, rec.ChunkType}
		if _, ok := s.entries[key]; ok {
			continue
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		s.seq++
		s.entries[key] = &entry{record: rec, seq: s.seq}
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
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
