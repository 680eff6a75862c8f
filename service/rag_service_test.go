package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"officialqa-backend/embedding"
	"officialqa-backend/models"
	"officialqa-backend/repository"
	"officialqa-backend/storage"
	"officialqa-backend/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 64

type harness struct {
	svc      *RAGService
	store    *vectorstore.MemoryStore
	entities *fakeEntities
	embedder *countingEmbedder
	gen      *echoGenerator
}

func newHarness(t *testing.T, officials []*models.Official, opts ...RAGServiceOption) *harness {
	t.Helper()
	h := &harness{
		store:    vectorstore.NewMemoryStore(testDims),
		entities: newFakeEntities(officials...),
		embedder: newCountingEmbedder(testDims),
		gen:      &echoGenerator{},
	}
	base := []RAGServiceOption{
		WithVectorStore(h.store),
		WithEntitySource(h.entities),
		WithEmbedder(h.embedder),
		WithSynthesizer(NewSynthesizer(h.gen)),
	}
	h.svc = NewRAGService(append(base, opts...)...)
	return h
}

func TestIngest_IsIdempotent(t *testing.T) {
	h := newHarness(t, []*models.Official{fullOfficial()})
	ctx := context.Background()

	first, err := h.svc.Ingest(ctx, 7)
	require.NoError(t, err)
	assert.Greater(t, first.Inserted, 0)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, "Jane Doe", first.EntityName)
	callsAfterFirst := h.embedder.Calls()

	second, err := h.svc.Ingest(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, first.Inserted, second.Skipped)
	assert.Equal(t, callsAfterFirst, h.embedder.Calls(), "indexed chunks must not be embedded again")

	status, err := h.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Inserted, status.TotalEmbeddings)
	assert.Equal(t, 1, status.EntitiesIndexed)
}

func TestIngest_EmbeddingsMatchProviderDimensions(t *testing.T) {
	officials := []*models.Official{
		fullOfficial(),
		{ID: 8, Name: "John Roe", Party: "Other Party", Assets: "Rs 45 Lakh"},
		{ID: 9, Name: "Mary Major", Education: "Post Graduate"},
	}
	h := newHarness(t, officials)

	batch, err := h.svc.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, batch.EntitiesProcessed)

	records := h.store.Records()
	require.Len(t, records, batch.ChunksInserted)
	for _, rec := range records {
		assert.Len(t, rec.Embedding, h.embedder.Dimensions())
	}
}

func TestIngest_NotFound(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.Ingest(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrOfficialNotFound)
	assert.ErrorIs(t, err, ErrEntityFetchFailed)

	_, err = h.svc.Ingest(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidEntityID)
}

func TestIngest_DimensionMismatchIsPerChunk(t *testing.T) {
	h := newHarness(t, []*models.Official{fullOfficial()}, WithVectorStore(vectorstore.NewMemoryStore(testDims/2)))

	result, err := h.svc.Ingest(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	require.Len(t, result.ChunkErrors, len(models.AllChunkTypes()))
	for _, ce := range result.ChunkErrors {
		assert.Contains(t, ce.Error, embedding.ErrDimensionMismatch.Error())
	}
}

func TestIngestAll_DimensionMismatchDoesNotAbortBatch(t *testing.T) {
	officials := []*models.Official{
		{ID: 1, Name: "A", State: "Goa"},
		{ID: 2, Name: "B", State: "Goa"},
	}
	h := newHarness(t, officials, WithVectorStore(vectorstore.NewMemoryStore(testDims/2)))

	batch, err := h.svc.IngestAll(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Errors, 2)
	assert.Equal(t, int64(1), batch.Errors[0].EntityID)
	assert.Equal(t, int64(2), batch.Errors[1].EntityID)
	assert.False(t, batch.Aborted)
}

func TestAsk_EmptyCorpus(t *testing.T) {
	h := newHarness(t, nil)

	answer, err := h.svc.Ask(context.Background(), "Who has the most assets?", "")
	require.NoError(t, err)
	assert.Equal(t, models.ConfidenceLow, answer.Confidence)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, h.gen.Calls())
}

func TestAsk_EmptyQuestion(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Ask(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_StoreFailure(t *testing.T) {
	h := newHarness(t, nil, WithVectorStore(&stubStore{dims: testDims, queryErr: errors.New("connection refused")}))
	_, err := h.svc.Ask(context.Background(), "question", "")
	assert.ErrorIs(t, err, ErrRetrievalFailed)
}

func TestAsk_EntityFilter(t *testing.T) {
	officials := []*models.Official{
		{ID: 1, Name: "Jane Doe", Party: "Example Party", Assets: "₹5 Crore", CriminalCases: intPtr(1)},
		{ID: 2, Name: "John Roe", Party: "Example Party", Assets: "₹9 Crore", CriminalCases: intPtr(4)},
		{ID: 3, Name: "Mary JANE DOE-Smith", Party: "Other Party", Assets: "₹1 Crore"},
	}
	h := newHarness(t, officials, WithTopK(10))
	ctx := context.Background()

	_, err := h.svc.IngestAll(ctx)
	require.NoError(t, err)

	answer, err := h.svc.Ask(ctx, "What assets and criminal cases were declared?", "Jane Doe")
	require.NoError(t, err)
	require.NotEmpty(t, answer.Sources)
	for _, src := range answer.Sources {
		assert.Contains(t, strings.ToLower(src.EntityName), "jane doe")
	}
}

func TestAsk_SourcesOrderedBySimilarity(t *testing.T) {
	officials := []*models.Official{
		fullOfficial(),
		{ID: 8, Name: "John Roe", Party: "Other Party", Assets: "Rs 45 Lakh", CriminalCases: intPtr(0)},
	}
	h := newHarness(t, officials, WithTopK(10))
	ctx := context.Background()

	_, err := h.svc.IngestAll(ctx)
	require.NoError(t, err)

	answer, err := h.svc.Ask(ctx, "criminal cases pending", "")
	require.NoError(t, err)
	for i := 1; i < len(answer.Sources); i++ {
		assert.GreaterOrEqual(t, answer.Sources[i-1].SimilarityScore, answer.Sources[i].SimilarityScore)
	}
}

func TestScenario_AssetsQuestion(t *testing.T) {
	jane := &models.Official{ID: 11, Name: "Jane Doe", Assets: "₹5 Crore", CriminalCases: intPtr(2)}
	h := newHarness(t, []*models.Official{jane})
	ctx := context.Background()

	ingested, err := h.svc.Ingest(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 2, ingested.Inserted)

	answer, err := h.svc.Ask(ctx, "What are this person's assets?", "Jane Doe")
	require.NoError(t, err)

	var financial *models.Source
	for i := range answer.Sources {
		if answer.Sources[i].ChunkType == models.ChunkTypeFinancial {
			financial = &answer.Sources[i]
		}
	}
	require.NotNil(t, financial)
	assert.Greater(t, financial.SimilarityScore, 0.0)
	assert.Contains(t, answer.Answer, "5 Crore")
	assert.Equal(t, models.OutcomeAnswered, answer.Outcome)
}

func TestScenario_EmptyRecord(t *testing.T) {
	h := newHarness(t, []*models.Official{{ID: 12, Name: "Blank Official"}})
	ctx := context.Background()

	ingested, err := h.svc.Ingest(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 0, ingested.Inserted)
	assert.Empty(t, ingested.ChunkErrors)

	answer, err := h.svc.Ask(ctx, "What are Blank Official's assets?", "Blank Official")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(answer.Answer), "insufficient information")
	assert.Equal(t, models.ConfidenceLow, answer.Confidence)
	assert.Equal(t, 0, h.gen.Calls())
}

func TestScenario_BatchPartialFailure(t *testing.T) {
	officials := []*models.Official{
		{ID: 1, Name: "First", State: "Goa"},
		{ID: 2, Name: "Second", State: "Goa"},
		{ID: 3, Name: "Third", State: "Goa"},
	}
	h := newHarness(t, officials)
	h.entities.fail[2] = errors.New("database timeout")

	batch, err := h.svc.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, batch.EntitiesProcessed)
	assert.Equal(t, 2, batch.ChunksInserted)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, int64(2), batch.Errors[0].EntityID)
	assert.Contains(t, batch.Errors[0].Error, "database timeout")

	for _, id := range []int64{1, 3} {
		exists, err := h.store.Exists(context.Background(), id, models.ChunkTypeProfile)
		require.NoError(t, err)
		assert.True(t, exists)
	}
}

func TestIngestAll_UsesPacer(t *testing.T) {
	officials := []*models.Official{
		{ID: 1, Name: "A", State: "Goa"},
		{ID: 2, Name: "B", State: "Goa"},
		{ID: 3, Name: "C", State: "Goa"},
	}
	pacer := &recordingPacer{}
	h := newHarness(t, officials, WithPacer(pacer))
	h.entities.fail[2] = errors.New("boom")

	_, err := h.svc.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pacer.waits)
	assert.Equal(t, []int{1}, pacer.backoffs)
}

func TestIngestAll_StopsAfterConsecutiveFailures(t *testing.T) {
	officials := []*models.Official{
		{ID: 1, Name: "A", State: "Goa"},
		{ID: 2, Name: "B", State: "Goa"},
		{ID: 3, Name: "C", State: "Goa"},
		{ID: 4, Name: "D", State: "Goa"},
	}
	pacer := &recordingPacer{}
	h := newHarness(t, officials, WithPacer(pacer), WithMaxConsecutiveFailures(2))
	h.entities.fail[1] = errors.New("store unavailable")
	h.entities.fail[2] = errors.New("store unavailable")

	batch, err := h.svc.IngestAll(context.Background())
	require.NoError(t, err)
	assert.True(t, batch.Aborted)
	assert.Equal(t, 0, batch.EntitiesProcessed)
	require.Len(t, batch.Errors, 4)
	assert.Contains(t, batch.Errors[2].Error, "not processed")
	assert.Equal(t, int64(4), batch.Errors[3].EntityID)
	assert.Equal(t, 2, pacer.waits)
}

func TestIngestAll_ConsecutiveCounterResets(t *testing.T) {
	officials := []*models.Official{
		{ID: 1, Name: "A", State: "Goa"},
		{ID: 2, Name: "B", State: "Goa"},
		{ID: 3, Name: "C", State: "Goa"},
	}
	h := newHarness(t, officials, WithMaxConsecutiveFailures(2))
	h.entities.fail[1] = errors.New("boom")
	h.entities.fail[3] = errors.New("boom")

	batch, err := h.svc.IngestAll(context.Background())
	require.NoError(t, err)
	assert.False(t, batch.Aborted)
	assert.Equal(t, 1, batch.EntitiesProcessed)
	assert.Len(t, batch.Errors, 2)
}

func TestIngestAll_Cancelled(t *testing.T) {
	officials := []*models.Official{
		{ID: 1, Name: "A", State: "Goa"},
		{ID: 2, Name: "B", State: "Goa"},
	}
	h := newHarness(t, officials)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := h.svc.IngestAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.EntitiesProcessed)
	require.Len(t, batch.Errors, 2)
	assert.Contains(t, batch.Errors[0].Error, "not processed")
}

type slowEntities struct {
	*fakeEntities
	slow int64
}

func (s *slowEntities) GetEntity(ctx context.Context, id int64) (*models.Official, error) {
	if id == s.slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.fakeEntities.GetEntity(ctx, id)
}

func TestIngestAll_EntityTimeoutContinues(t *testing.T) {
	entities := &slowEntities{
		fakeEntities: newFakeEntities(
			&models.Official{ID: 1, Name: "A", State: "Goa"},
			&models.Official{ID: 2, Name: "B", State: "Goa"},
			&models.Official{ID: 3, Name: "C", State: "Goa"},
		),
		slow: 2,
	}
	h := newHarness(t, nil, WithEntitySource(entities), WithEntityTimeout(20*time.Millisecond))

	batch, err := h.svc.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, batch.EntitiesProcessed)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, int64(2), batch.Errors[0].EntityID)
}

func TestIngestAll_ListFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.entities.listErr = errors.New("no database")

	_, err := h.svc.IngestAll(context.Background())
	assert.Error(t, err)
}

func TestIngestAll_EmptyErrorsSlice(t *testing.T) {
	h := newHarness(t, []*models.Official{{ID: 1, Name: "A", State: "Goa"}})

	batch, err := h.svc.IngestAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, batch.Errors)
	assert.Empty(t, batch.Errors)
}

func TestPurge_AllowsReindex(t *testing.T) {
	h := newHarness(t, []*models.Official{fullOfficial()})
	ctx := context.Background()

	first, err := h.svc.Ingest(ctx, 7)
	require.NoError(t, err)

	removed, err := h.svc.Purge(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first.Inserted, removed)

	again, err := h.svc.Ingest(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first.Inserted, again.Inserted)
}

func TestIngest_FlushesPersistentStore(t *testing.T) {
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := vectorstore.NewPersistentStore(blobs, testDims)
	h := newHarness(t, []*models.Official{fullOfficial()}, WithVectorStore(store))
	ctx := context.Background()

	result, err := h.svc.Ingest(ctx, 7)
	require.NoError(t, err)

	reloaded := vectorstore.NewPersistentStore(blobs, testDims)
	require.NoError(t, reloaded.Load(ctx))
	assert.Len(t, reloaded.Records(), result.Inserted)
}

func TestInitialize_MemoryStoreIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	assert.NoError(t, h.svc.Initialize(context.Background()))
}

func TestMissingDependencies(t *testing.T) {
	svc := NewRAGService()
	ctx := context.Background()

	_, err := svc.Ask(ctx, "q", "")
	assert.ErrorIs(t, err, ErrSynthesizerNotSet)

	_, err = svc.Ingest(ctx, 1)
	assert.ErrorIs(t, err, ErrEntitySourceNotSet)

	_, err = svc.IngestAll(ctx)
	assert.ErrorIs(t, err, ErrEntitySourceNotSet)

	_, err = svc.Status(ctx)
	assert.ErrorIs(t, err, ErrVectorStoreNotSet)
}
