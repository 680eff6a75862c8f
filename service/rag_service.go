package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"officialqa-backend/embedding"
	"officialqa-backend/models"
)

// RAGService answers questions about officials from the indexed records and
// keeps the index up to date.
type RAGService struct {
	store                  VectorStore
	entities               EntitySource
	embedder               embedding.Provider
	chunker                *Chunker
	synthesizer            *Synthesizer
	pacer                  Pacer
	topK                   int
	maxConsecutiveFailures int
	entityTimeout          time.Duration
}

// RAGServiceOption is a functional option for RAGService
type RAGServiceOption func(*RAGService)

// WithVectorStore sets the vector store
func WithVectorStore(store VectorStore) RAGServiceOption {
	return func(s *RAGService) {
		s.store = store
	}
}

// WithEntitySource sets where official records are read from
func WithEntitySource(entities EntitySource) RAGServiceOption {
	return func(s *RAGService) {
		s.entities = entities
	}
}

// WithEmbedder sets the embedding provider
func WithEmbedder(embedder embedding.Provider) RAGServiceOption {
	return func(s *RAGService) {
		s.embedder = embedder
	}
}

// WithChunker sets the chunker
func WithChunker(chunker *Chunker) RAGServiceOption {
	return func(s *RAGService) {
		s.chunker = chunker
	}
}

// WithSynthesizer sets the answer synthesizer
func WithSynthesizer(synthesizer *Synthesizer) RAGServiceOption {
	return func(s *RAGService) {
		s.synthesizer = synthesizer
	}
}

// WithPacer sets the pacing policy for IngestAll
func WithPacer(pacer Pacer) RAGServiceOption {
	return func(s *RAGService) {
		s.pacer = pacer
	}
}

// WithTopK sets how many chunks Ask retrieves
func WithTopK(k int) RAGServiceOption {
	return func(s *RAGService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithMaxConsecutiveFailures stops IngestAll after n failed entities in a row; 0 never stops
func WithMaxConsecutiveFailures(n int) RAGServiceOption {
	return func(s *RAGService) {
		if n >= 0 {
			s.maxConsecutiveFailures = n
		}
	}
}

// WithEntityTimeout bounds the ingestion of a single entity in IngestAll
func WithEntityTimeout(d time.Duration) RAGServiceOption {
	return func(s *RAGService) {
		if d > 0 {
			s.entityTimeout = d
		}
	}
}

// NewRAGService creates a new RAG service
func NewRAGService(opts ...RAGServiceOption) *RAGService {
	s := &RAGService{
		chunker: NewChunker(),
		pacer:   NoPacing{},
		topK:    DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask answers a question from the indexed records. entityName optionally
// restricts evidence to officials whose name contains it.
func (s *RAGService) Ask(ctx context.Context, question, entityName string) (models.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.AnswerResult{}, ErrEmptyQuestion
	}
	if s.synthesizer == nil {
		return models.AnswerResult{}, ErrSynthesizerNotSet
	}

	result, err := NewRetriever(s.embedder, s.store).Retrieve(ctx, question, s.topK, strings.TrimSpace(entityName))
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	return s.synthesizer.Synthesize(ctx, question, result), nil
}

// Ingest chunks and indexes one official. Chunks already indexed are skipped
// without being embedded again. A chunk that fails is recorded and the rest
// are still indexed.
func (s *RAGService) Ingest(ctx context.Context, entityID int64) (models.IngestResult, error) {
	result, err := s.ingest(ctx, entityID)
	if err != nil {
		return result, err
	}
	if result.Inserted > 0 {
		if err := s.flush(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *RAGService) ingest(ctx context.Context, entityID int64) (models.IngestResult, error) {
	result := models.IngestResult{EntityID: entityID}
	if entityID <= 0 {
		return result, ErrInvalidEntityID
	}
	if s.entities == nil {
		return result, ErrEntitySourceNotSet
	}
	if s.store == nil {
		return result, ErrVectorStoreNotSet
	}
	if s.embedder == nil {
		return result, ErrEmbedderNotSet
	}

	official, err := s.entities.GetEntity(ctx, entityID)
	if err != nil {
		return result, fmt.Errorf("%w %d: %w", ErrEntityFetchFailed, entityID, err)
	}
	result.EntityName = official.Name

	chunks := s.chunker.Chunk(official)
	for _, chunk := range chunks {
		outcome, err := s.indexChunk(ctx, chunk)
		if err != nil {
			log.Printf("Warning: failed to index %s chunk for official %d: %v", chunk.Type, entityID, err)
			result.ChunkErrors = append(result.ChunkErrors, models.ChunkError{
				ChunkType: chunk.Type,
				Error:     err.Error(),
			})
			continue
		}
		switch outcome {
		case models.UpsertInserted:
			result.Inserted++
		case models.UpsertSkipped:
			result.Skipped++
		}
	}

	return result, nil
}

func (s *RAGService) indexChunk(ctx context.Context, chunk models.Chunk) (models.UpsertOutcome, error) {
	exists, err := s.store.Exists(ctx, chunk.EntityID, chunk.Type)
	if err != nil {
		return "", err
	}
	if exists {
		return models.UpsertSkipped, nil
	}

	vec, err := s.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return "", err
	}
	return s.store.Upsert(ctx, chunk, vec)
}

// IngestAll ingests every official. A failed official is recorded and the
// batch continues with the next one. It returns an error only when the list
// of officials cannot be read.
func (s *RAGService) IngestAll(ctx context.Context) (models.BatchIngestResult, error) {
	batch := models.BatchIngestResult{Errors: []models.EntityError{}}
	if s.entities == nil {
		return batch, ErrEntitySourceNotSet
	}

	ids, err := s.entities.ListEntityIDs(ctx)
	if err != nil {
		return batch, fmt.Errorf("failed to list entities: %w", err)
	}
	log.Printf("Ingesting %d officials", len(ids))

	consecutiveFailures := 0
	for i, id := range ids {
		if err := s.pacer.Wait(ctx); err != nil {
			batch.Errors = append(batch.Errors, remainingErrors(ids[i:], fmt.Sprintf("not processed: %v", err))...)
			break
		}

		res, err := s.ingestOne(ctx, id)
		if err == nil && len(res.ChunkErrors) > 0 && res.Inserted == 0 && res.Skipped == 0 {
			err = fmt.Errorf("%w: %s", ErrAllChunksFailed, res.ChunkErrors[0].Error)
		}

		batch.ChunksInserted += res.Inserted
		batch.ChunksSkipped += res.Skipped

		if err != nil {
			log.Printf("Warning: failed to ingest official %d: %v", id, err)
			batch.Errors = append(batch.Errors, models.EntityError{EntityID: id, Error: err.Error()})
			consecutiveFailures++

			if ctx.Err() != nil {
				batch.Errors = append(batch.Errors, remainingErrors(ids[i+1:], fmt.Sprintf("not processed: %v", ctx.Err()))...)
				break
			}
			if s.maxConsecutiveFailures > 0 && consecutiveFailures >= s.maxConsecutiveFailures {
				log.Printf("Warning: stopping batch after %d consecutive failures", consecutiveFailures)
				batch.Aborted = true
				batch.Errors = append(batch.Errors, remainingErrors(ids[i+1:],
					fmt.Sprintf("not processed: batch stopped after %d consecutive failures", consecutiveFailures))...)
				break
			}
			if err := s.pacer.Backoff(ctx, consecutiveFailures); err != nil && ctx.Err() != nil {
				batch.Errors = append(batch.Errors, remainingErrors(ids[i+1:], fmt.Sprintf("not processed: %v", err))...)
				break
			}
			continue
		}

		consecutiveFailures = 0
		batch.EntitiesProcessed++
		if len(res.ChunkErrors) > 0 {
			batch.Errors = append(batch.Errors, models.EntityError{
				EntityID: id,
				Error:    fmt.Sprintf("%d of %d chunks failed: %s", len(res.ChunkErrors), len(res.ChunkErrors)+res.Inserted+res.Skipped, res.ChunkErrors[0].Error),
			})
		}
	}

	if batch.ChunksInserted > 0 {
		if err := s.flush(context.WithoutCancel(ctx)); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	log.Printf("Ingestion finished: %d officials processed, %d chunks inserted, %d skipped, %d errors",
		batch.EntitiesProcessed, batch.ChunksInserted, batch.ChunksSkipped, len(batch.Errors))
	return batch, nil
}

func (s *RAGService) ingestOne(ctx context.Context, id int64) (models.IngestResult, error) {
	if s.entityTimeout <= 0 {
		return s.ingest(ctx, id)
	}
	entityCtx, cancel := context.WithTimeout(ctx, s.entityTimeout)
	defer cancel()
	return s.ingest(entityCtx, id)
}

func remainingErrors(ids []int64, msg string) []models.EntityError {
	errs := make([]models.EntityError, len(ids))
	for i, id := range ids {
		errs[i] = models.EntityError{EntityID: id, Error: msg}
	}
	return errs
}

// Status reports what is currently indexed.
func (s *RAGService) Status(ctx context.Context) (models.IndexStatus, error) {
	if s.store == nil {
		return models.IndexStatus{}, ErrVectorStoreNotSet
	}
	status, err := s.store.Stats(ctx)
	if err != nil {
		return models.IndexStatus{}, fmt.Errorf("failed to read index status: %w", err)
	}
	return status, nil
}

// Purge removes every indexed chunk of an official so the next Ingest
// rebuilds them.
func (s *RAGService) Purge(ctx context.Context, entityID int64) (int, error) {
	if entityID <= 0 {
		return 0, ErrInvalidEntityID
	}
	if s.store == nil {
		return 0, ErrVectorStoreNotSet
	}
	removed, err := s.store.Purge(ctx, entityID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge official %d: %w", entityID, err)
	}
	if removed > 0 {
		if err := s.flush(ctx); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Initialize prepares the vector store and the entity source when they need setup.
func (s *RAGService) Initialize(ctx context.Context) error {
	if s.store == nil {
		return ErrVectorStoreNotSet
	}
	if init, ok := s.entities.(Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return err
		}
	}
	if init, ok := s.store.(Initializer); ok {
		return init.Initialize(ctx)
	}
	return nil
}

func (s *RAGService) flush(ctx context.Context) error {
	f, ok := s.store.(Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush vector store: %w", err)
	}
	return nil
}
