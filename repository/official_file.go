package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"officialqa-backend/models"
)

// LoadOfficialsFile reads a JSON array of officials
func LoadOfficialsFile(path string) ([]models.Official, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read officials file: %w", err)
	}

	var officials []models.Official
	if err := json.Unmarshal(data, &officials); err != nil {
		return nil, fmt.Errorf("failed to parse officials file: %w", err)
	}
	return officials, nil
}

// StaticOfficialSource serves a fixed set of officials from memory
type StaticOfficialSource struct {
	byID map[int64]models.Official
	ids  []int64
}

// NewStaticOfficialSource indexes officials by ID. Every official needs a
// positive, unique ID.
func NewStaticOfficialSource(officials []models.Official) (*StaticOfficialSource, error) {
	s := &StaticOfficialSource{byID: make(map[int64]models.Official, len(officials))}
	for _, o := range officials {
		if o.ID <= 0 {
			return nil, fmt.Errorf("official %q has no id", o.Name)
		}
		if _, dup := s.byID[o.ID]; dup {
			return nil, fmt.Errorf("duplicate official id %d", o.ID)
		}
		s.byID[o.ID] = o
		s.ids = append(s.ids, o.ID)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s, nil
}

// GetEntity returns a copy of the official
func (s *StaticOfficialSource) GetEntity(_ context.Context, id int64) (*models.Official, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrOfficialNotFound, id)
	}
	return &o, nil
}

// ListEntityIDs returns every ID in ascending order
func (s *StaticOfficialSource) ListEntityIDs(_ context.Context) ([]int64, error) {
	return append([]int64(nil), s.ids...), nil
}
