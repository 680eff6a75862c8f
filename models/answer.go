package models

// ConfidenceTier grades how well the retrieved evidence supports an answer.
type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// AnswerOutcome tells callers which path produced an answer.
type AnswerOutcome string

const (
	OutcomeAnswered         AnswerOutcome = "answered"
	OutcomeNoEvidence       AnswerOutcome = "no_evidence"
	OutcomeGenerationFailed AnswerOutcome = "generation_failed"
)

// Source identifies a chunk that was handed to the generator as evidence.
type Source struct {
	EntityName      string    `json:"entity_name"`
	ChunkType       ChunkType `json:"chunk_type"`
	SimilarityScore float64   `json:"similarity_score"`
}

// AnswerResult is always returned to callers of Ask, including on degraded paths.
type AnswerResult struct {
	Answer     string         `json:"answer"`
	Sources    []Source       `json:"sources"`
	Confidence ConfidenceTier `json:"confidence"`
	Outcome    AnswerOutcome  `json:"outcome"`
}

// ChunkError records a chunk that could not be indexed.
type ChunkError struct {
	ChunkType ChunkType `json:"chunk_type"`
	Error     string    `json:"error"`
}

// IngestResult summarizes indexing a single official.
type IngestResult struct {
	EntityID    int64        `json:"entity_id"`
	EntityName  string       `json:"entity_name"`
	Inserted    int          `json:"inserted_count"`
	Skipped     int          `json:"skipped_count"`
	ChunkErrors []ChunkError `json:"chunk_errors,omitempty"`
}

// EntityError records an official whose ingestion failed in a batch run.
type EntityError struct {
	EntityID int64  `json:"entity_id"`
	Error    string `json:"error"`
}

// BatchIngestResult summarizes an ingest-all run.
type BatchIngestResult struct {
	EntitiesProcessed int           `json:"entities_processed"`
	ChunksInserted    int           `json:"chunks_inserted"`
	ChunksSkipped     int           `json:"chunks_skipped"`
	Errors            []EntityError `json:"per_entity_errors"`
	Aborted           bool          `json:"aborted,omitempty"`
}

// IndexStatus describes what is currently indexed.
type IndexStatus struct {
	TotalEmbeddings int               `json:"total_embeddings"`
	EntitiesIndexed int               `json:"entities_indexed"`
	ByChunkType     map[ChunkType]int `json:"by_chunk_type,omitempty"`
}
