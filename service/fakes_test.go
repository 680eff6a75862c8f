package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"officialqa-backend/embedding"
	"officialqa-backend/models"
	"officialqa-backend/repository"
)

type fakeEntities struct {
	officials map[int64]*models.Official
	order     []int64
	fail      map[int64]error
	listErr   error
}

func newFakeEntities(officials ...*models.Official) *fakeEntities {
	f := &fakeEntities{
		officials: make(map[int64]*models.Official),
		fail:      make(map[int64]error),
	}
	for _, o := range officials {
		f.officials[o.ID] = o
		f.order = append(f.order, o.ID)
	}
	return f
}

func (f *fakeEntities) GetEntity(_ context.Context, id int64) (*models.Official, error) {
	if err, ok := f.fail[id]; ok {
		return nil, err
	}
	o, ok := f.officials[id]
	if !ok {
		return nil, repository.ErrOfficialNotFound
	}
	return o, nil
}

func (f *fakeEntities) ListEntityIDs(_ context.Context) ([]int64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]int64(nil), f.order...), nil
}

// countingEmbedder wraps the hash provider and counts calls.
type countingEmbedder struct {
	embedding.Provider
	mu    sync.Mutex
	calls int
}

func newCountingEmbedder(dims int) *countingEmbedder {
	return &countingEmbedder{Provider: embedding.NewHashProvider(dims)}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Provider.Embed(ctx, text)
}

func (c *countingEmbedder) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// echoGenerator answers with the context section of the prompt.
type echoGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	err     error
	block   bool
}

func (g *echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if g.err != nil {
		return "", g.err
	}

	start := strings.Index(prompt, "Context from the officials index:\n")
	end := strings.Index(prompt, "\n\nQuestion:")
	if start < 0 || end < start {
		return "insufficient information", nil
	}
	return prompt[start+len("Context from the officials index:\n") : end], nil
}

func (g *echoGenerator) Name() string { return "echo" }

func (g *echoGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// stubStore returns a canned query result.
type stubStore struct {
	dims     int
	result   models.QueryResult
	queryErr error
	lastK    int
}

func (s *stubStore) Dimensions() int { return s.dims }

func (s *stubStore) Exists(context.Context, int64, models.ChunkType) (bool, error) {
	return false, nil
}

func (s *stubStore) Upsert(context.Context, models.Chunk, []float32) (models.UpsertOutcome, error) {
	return "", errors.New("store unavailable")
}

func (s *stubStore) Query(_ context.Context, _ []float32, k int, _ string) (models.QueryResult, error) {
	s.lastK = k
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	out := make(models.QueryResult, len(s.result))
	copy(out, s.result)
	return out, nil
}

func (s *stubStore) Stats(context.Context) (models.IndexStatus, error) {
	return models.IndexStatus{}, nil
}

func (s *stubStore) Purge(context.Context, int64) (int, error) { return 0, nil }

type recordingPacer struct {
	waits    int
	backoffs []int
}

func (p *recordingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func (p *recordingPacer) Backoff(ctx context.Context, n int) error {
	p.backoffs = append(p.backoffs, n)
	return ctx.Err()
}

func scored(name string, t models.ChunkType, content string, sim float64) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk:      models.Chunk{EntityID: 1, EntityName: name, Type: t, Content: content},
		Similarity: sim,
	}
}

func intPtr(n int) *int { return &n }
