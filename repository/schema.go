package repository

import "fmt"

// SchemaStatement is one named DDL step.
type SchemaStatement struct {
	Name string
	SQL  string
}

// DefaultEfSearch is used when no hnsw.ef_search override is configured.
const DefaultEfSearch = 100

// OfficialsSchema creates the officials table read by OfficialRepository.
func OfficialsSchema() []SchemaStatement {
	return []SchemaStatement{
		{
			Name: "officials table",
			SQL: `
CREATE TABLE IF NOT EXISTS officials (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    position TEXT,
    party TEXT,
    constituency TEXT,
    state TEXT,
    education TEXT,
    assets TEXT,
    liabilities TEXT,
    criminal_cases INTEGER,
    criminal_case_details TEXT,
    political_relatives TEXT,
    dynasty_status TEXT,
    source_url TEXT,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);`,
		},
		{
			Name: "Official name lookup",
			SQL:  "CREATE INDEX IF NOT EXISTS idx_officials_name ON officials (lower(name));",
		},
	}
}

// EmbeddingsSchema creates the pgvector extension, the embeddings table for
// vectors of the given length and its indexes.
func EmbeddingsSchema(dimensions int) []SchemaStatement {
	return []SchemaStatement{
		{
			Name: "pgvector extension",
			SQL:  "CREATE EXTENSION IF NOT EXISTS vector;",
		},
		{
			Name: "official_embeddings table",
			SQL: fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS official_embeddings (
    id UUID PRIMARY KEY,
    seq BIGSERIAL NOT NULL,
    official_id BIGINT NOT NULL,
    official_name TEXT NOT NULL,
    chunk_type VARCHAR(32) NOT NULL CHECK (chunk_type IN ('profile', 'financial', 'legal', 'relationships', 'education')),
    content TEXT NOT NULL,
    metadata JSONB DEFAULT '{}'::jsonb,
    embedding vector(%d) NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    CONSTRAINT official_chunk_unique UNIQUE (official_id, chunk_type)
);`, dimensions),
		},
		{
			Name: "Vector similarity search (HNSW)",
			SQL: `CREATE INDEX IF NOT EXISTS idx_official_embeddings_hnsw ON official_embeddings
USING hnsw (embedding vector_cosine_ops)
WITH (m = 16, ef_construction = 64);`,
		},
		{
			Name: "Official filtering",
			SQL:  "CREATE INDEX IF NOT EXISTS idx_official_embeddings_official_id ON official_embeddings (official_id);",
		},
		{
			Name: "Insertion order",
			SQL:  "CREATE INDEX IF NOT EXISTS idx_official_embeddings_seq ON official_embeddings (seq);",
		},
	}
}
