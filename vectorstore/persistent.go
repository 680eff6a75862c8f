package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"officialqa-backend/models"
	"officialqa-backend/storage"
)

// DefaultSnapshotKey is where PersistentStore writes its snapshot.
const DefaultSnapshotKey = "rag/official_embeddings.json"

const snapshotVersion = 1

type snapshot struct {
	Version    int                      `json:"version"`
	Dimensions int                      `json:"dimensions"`
	SavedAt    time.Time                `json:"saved_at"`
	Records    []models.EmbeddingRecord `json:"records"`
}

// PersistentStore is a MemoryStore whose contents survive restarts through a
// JSON snapshot kept in blob storage.
type PersistentStore struct {
	*MemoryStore

	blobs storage.Storage
	key   string

	flushMu sync.Mutex
	dirty   bool
	dirtyMu sync.Mutex
}

// PersistentOption configures a PersistentStore.
type PersistentOption func(*PersistentStore)

// WithSnapshotKey overrides the snapshot object key.
func WithSnapshotKey(key string) PersistentOption {
	return func(s *PersistentStore) {
		s.key = key
	}
}

// NewPersistentStore creates a store backed by blobs. Call Load before use to
// pick up an existing snapshot.
func NewPersistentStore(blobs storage.Storage, dimensions int, opts ...PersistentOption) *PersistentStore {
	s := &PersistentStore{
		MemoryStore: NewMemoryStore(dimensions),
		blobs:       blobs,
		key:         DefaultSnapshotKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the last snapshot. A missing snapshot is a cold start, not an error.
func (s *PersistentStore) Load(ctx context.Context) error {
	rc, err := s.blobs.Open(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Printf("No index snapshot at %s, starting empty", s.key)
			return nil
		}
		return fmt.Errorf("failed to open index snapshot: %w", err)
	}
	defer rc.Close()

	var snap snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode index snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported index snapshot version: %d", snap.Version)
	}
	if snap.Dimensions != s.Dimensions() {
		return fmt.Errorf("index snapshot has %d dimensions, store is configured for %d", snap.Dimensions, s.Dimensions())
	}

	if err := s.Restore(snap.Records); err != nil {
		return fmt.Errorf("failed to restore index snapshot: %w", err)
	}
	log.Printf("Loaded %d embeddings from %s", len(snap.Records), s.key)
	return nil
}

// Upsert inserts into memory and marks the store dirty when a record was added.
func (s *PersistentStore) Upsert(ctx context.Context, chunk models.Chunk, vec []float32) (models.UpsertOutcome, error) {
	outcome, err := s.MemoryStore.Upsert(ctx, chunk, vec)
	if err == nil && outcome == models.UpsertInserted {
		s.markDirty()
	}
	return outcome, err
}

// Purge removes an official's records and marks the store dirty.
func (s *PersistentStore) Purge(ctx context.Context, entityID int64) (int, error) {
	removed, err := s.MemoryStore.Purge(ctx, entityID)
	if err == nil && removed > 0 {
		s.markDirty()
	}
	return removed, err
}

// Flush writes a snapshot if anything changed since the last flush.
func (s *PersistentStore) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.dirtyMu.Lock()
	dirty := s.dirty
	s.dirty = false
	s.dirtyMu.Unlock()
	if !dirty {
		return nil
	}

	snap := snapshot{
		Version:    snapshotVersion,
		Dimensions: s.Dimensions(),
		SavedAt:    time.Now().UTC(),
		Records:    s.Records(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		s.markDirty()
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}
	if err := s.blobs.Save(ctx, s.key, bytes.NewReader(data)); err != nil {
		s.markDirty()
		return fmt.Errorf("failed to save index snapshot: %w", err)
	}
	return nil
}

func (s *PersistentStore) markDirty() {
	s.dirtyMu.Lock()
	s.dirty = true
	s.dirtyMu.Unlock()
}
