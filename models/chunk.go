package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChunkType is the closed set of categories an official's record is split into.
type ChunkType int

const (
	ChunkTypeProfile ChunkType = iota
	ChunkTypeFinancial
	ChunkTypeLegal
	ChunkTypeRelationships
	ChunkTypeEducation

	chunkTypeCount
)

var chunkTypeNames = [chunkTypeCount]string{
	ChunkTypeProfile:       "profile",
	ChunkTypeFinancial:     "financial",
	ChunkTypeLegal:         "legal",
	ChunkTypeRelationships: "relationships",
	ChunkTypeEducation:     "education",
}

// AllChunkTypes returns every chunk type in chunking order.
func AllChunkTypes() []ChunkType {
	types := make([]ChunkType, 0, chunkTypeCount)
	for t := ChunkType(0); t < chunkTypeCount; t++ {
		types = append(types, t)
	}
	return types
}

// Valid reports whether t is one of the declared chunk types.
func (t ChunkType) Valid() bool {
	return t >= 0 && t < chunkTypeCount
}

func (t ChunkType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ChunkType(%d)", int(t))
	}
	return chunkTypeNames[t]
}

// ParseChunkType converts the stored name back into a ChunkType.
func ParseChunkType(s string) (ChunkType, error) {
	for t, name := range chunkTypeNames {
		if name == s {
			return ChunkType(t), nil
		}
	}
	return 0, fmt.Errorf("unknown chunk type: %q", s)
}

// MarshalText implements encoding.TextMarshaler so chunk types serialize by name.
func (t ChunkType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid chunk type: %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ChunkType) UnmarshalText(text []byte) error {
	parsed, err := ParseChunkType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Chunk is a short single-topic statement about one official.
type Chunk struct {
	EntityID   int64          `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	Type       ChunkType      `json:"chunk_type"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// EmbeddingRecord is a persisted chunk with its vector.
// At most one record exists per (EntityID, ChunkType).
type EmbeddingRecord struct {
	ID         uuid.UUID      `json:"id"`
	EntityID   int64          `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	ChunkType  ChunkType      `json:"chunk_type"`
	Content    string         `json:"content"`
	Embedding  []float32      `json:"embedding"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Chunk returns the chunk view of the record.
func (r EmbeddingRecord) Chunk() Chunk {
	return Chunk{
		EntityID:   r.EntityID,
		EntityName: r.EntityName,
		Type:       r.ChunkType,
		Content:    r.Content,
		Metadata:   r.Metadata,
	}
}

// ScoredChunk is a retrieved chunk with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
}

// QueryResult is ordered by non-increasing similarity.
type QueryResult []ScoredChunk

// UpsertOutcome reports what an idempotent upsert did.
type UpsertOutcome string

const (
	UpsertInserted UpsertOutcome = "inserted"
	UpsertSkipped  UpsertOutcome = "skipped"
)
