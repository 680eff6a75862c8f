package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"officialqa-backend/embedding"
	"officialqa-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmbeddingRepository stores official chunk embeddings in Postgres with pgvector
type EmbeddingRepository struct {
	db         *pgxpool.Pool
	dimensions int
	efSearch   int
}

// EmbeddingRepositoryOption configures an EmbeddingRepository
type EmbeddingRepositoryOption func(*EmbeddingRepository)

// WithEfSearch sets hnsw.ef_search for similarity queries
func WithEfSearch(efSearch int) EmbeddingRepositoryOption {
	return func(r *EmbeddingRepository) {
		if efSearch > 0 {
			r.efSearch = efSearch
		}
	}
}

// NewEmbeddingRepository creates a new embedding repository for vectors of the given length
func NewEmbeddingRepository(db *pgxpool.Pool, dimensions int, opts ...EmbeddingRepositoryOption) *EmbeddingRepository {
	r := &EmbeddingRepository{
		db:         db,
		dimensions: dimensions,
		efSearch:   DefaultEfSearch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// escapeLike escapes LIKE wildcards so the filter is matched literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Dimensions returns the configured vector length
func (r *EmbeddingRepository) Dimensions() int {
	return r.dimensions
}

// Initialize creates the pgvector extension, table and indexes if missing
func (r *EmbeddingRepository) Initialize(ctx context.Context) error {
	for _, stmt := range EmbeddingsSchema(r.dimensions) {
		if _, err := r.db.Exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.Name, err)
		}
	}
	return nil
}

// Exists reports whether an embedding is stored for the official and chunk type
func (r *EmbeddingRepository) Exists(ctx context.Context, entityID int64, chunkType models.ChunkType) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM official_embeddings WHERE official_id = $1 AND chunk_type = $2)`,
		entityID, chunkType.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check embedding: %w", err)
	}
	return exists, nil
}

// Upsert inserts the chunk embedding; an existing (official, chunk type) row is left untouched
func (r *EmbeddingRepository) Upsert(ctx context.Context, chunk models.Chunk, vec []float32) (models.UpsertOutcome, error) {
	if len(vec) != r.dimensions {
		return "", fmt.Errorf("%w: got %d, want %d", embedding.ErrDimensionMismatch, len(vec), r.dimensions)
	}
	if !chunk.Type.Valid() {
		return "", fmt.Errorf("invalid chunk type: %d", int(chunk.Type))
	}

	metadata := chunk.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO official_embeddings (
			id, official_id, official_name, chunk_type, content, metadata, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6::jsonb, $7::vector
		)
		ON CONFLICT (official_id, chunk_type) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		uuid.New(),
		chunk.EntityID,
		chunk.EntityName,
		chunk.Type.String(),
		chunk.Content,
		string(metadataJSON),
		formatVector(vec),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert embedding: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.UpsertSkipped, nil
	}
	return models.UpsertInserted, nil
}

// Query performs a cosine similarity search over the HNSW index
// nameFilter: optional case-insensitive substring of the official's name
// Rows with equal distance are returned in insertion order
func (r *EmbeddingRepository) Query(ctx context.Context, vec []float32, k int, nameFilter string) (models.QueryResult, error) {
	if len(vec) != r.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", embedding.ErrDimensionMismatch, len(vec), r.dimensions)
	}
	if k <= 0 {
		return models.QueryResult{}, nil
	}

	args := []interface{}{formatVector(vec)}
	filter := ""
	if name := strings.TrimSpace(nameFilter); name != "" {
		args = append(args, escapeLike(name))
		filter = `WHERE official_name ILIKE '%' || $2 || '%' ESCAPE '\'`
	}
	args = append(args, k)

	query := fmt.Sprintf(`
		SELECT official_id, official_name, chunk_type, content, metadata, distance
		FROM (
			SELECT
				official_id,
				official_name,
				chunk_type,
				content,
				metadata,
				seq,
				embedding <=> $1::vector AS distance
			FROM official_embeddings
			%s
			ORDER BY embedding <=> $1::vector
			LIMIT $%d
		) nearest
		ORDER BY distance, seq`, filter, len(args))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin query transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", r.efSearch)); err != nil {
		return nil, fmt.Errorf("failed to set ef_search: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	result := models.QueryResult{}
	for rows.Next() {
		var (
			scored    models.ScoredChunk
			chunkType string
			metadata  map[string]any
			distance  float64
		)
		err := rows.Scan(
			&scored.Chunk.EntityID,
			&scored.Chunk.EntityName,
			&chunkType,
			&scored.Chunk.Content,
			&metadata,
			&distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		scored.Chunk.Type, err = models.ParseChunkType(chunkType)
		if err != nil {
			return nil, err
		}
		scored.Chunk.Metadata = metadata
		scored.Similarity = 1 - distance
		result = append(result, scored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit query transaction: %w", err)
	}

	return result, nil
}

// Stats counts stored embeddings, indexed officials and rows per chunk type
func (r *EmbeddingRepository) Stats(ctx context.Context) (models.IndexStatus, error) {
	status := models.IndexStatus{ByChunkType: make(map[models.ChunkType]int)}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT official_id) FROM official_embeddings`,
	).Scan(&status.TotalEmbeddings, &status.EntitiesIndexed)
	if err != nil {
		return status, fmt.Errorf("failed to count embeddings: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT chunk_type, COUNT(*) FROM official_embeddings GROUP BY chunk_type`,
	)
	if err != nil {
		return status, fmt.Errorf("failed to count embeddings by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return status, fmt.Errorf("failed to scan embedding count: %w", err)
		}
		chunkType, err := models.ParseChunkType(name)
		if err != nil {
			return status, err
		}
		status.ByChunkType[chunkType] = count
	}

	if err := rows.Err(); err != nil {
		return status, fmt.Errorf("error iterating embedding counts: %w", err)
	}

	return status, nil
}

// Purge deletes every embedding of an official
func (r *EmbeddingRepository) Purge(ctx context.Context, entityID int64) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM official_embeddings WHERE official_id = $1`, entityID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
