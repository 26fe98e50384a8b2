// Package memory keeps projection run records in process memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"vdypcore/pkg/domain"
)

var _ domain.RunStore = (*Store)(nil)

// Store is a map-backed run store. Records are copied in and out.
type Store struct {
	mu   sync.RWMutex
	runs map[string]domain.RunRecord
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{runs: make(map[string]domain.RunRecord)}
}

// SaveRun inserts or replaces the record with the same run id.
func (s *Store) SaveRun(ctx context.Context, record domain.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.RunID == "" {
		return fmt.Errorf("save run: empty run id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[record.RunID] = CloneRecord(record)
	return nil
}

func (s *Store) GetRun(_ context.Context, runID string) (domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	return CloneRecord(r), nil
}

// ListRunsByPolygon returns the runs of a polygon oldest first.
func (s *Store) ListRunsByPolygon(_ context.Context, polygonID string) ([]domain.RunRecord, error) {
	s.mu.RLock()
	var out []domain.RunRecord
	for _, r := range s.runs {
		if r.PolygonID == polygonID {
			out = append(out, CloneRecord(r))
		}
	}
	s.mu.RUnlock()
	SortRecords(out)
	return out, nil
}

func (s *Store) Close() error { return nil }

// CloneRecord deep-copies r.
func CloneRecord(r domain.RunRecord) domain.RunRecord {
	r.Messages = slices.Clone(r.Messages)
	r.ArtifactKeys = slices.Clone(r.ArtifactKeys)
	if r.Layers != nil {
		layers := make([]domain.LayerSummary, len(r.Layers))
		for i, l := range r.Layers {
			l.Stages = slices.Clone(l.Stages)
			l.InitialAttempts = slices.Clone(l.InitialAttempts)
			if l.FirstYieldYear != nil {
				year := *l.FirstYieldYear
				l.FirstYieldYear = &year
			}
			layers[i] = l
		}
		r.Layers = layers
	}
	return r
}

// SortRecords orders records by start time, then run id.
func SortRecords(records []domain.RunRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].StartedAt.Equal(records[j].StartedAt) {
			return records[i].StartedAt.Before(records[j].StartedAt)
		}
		return records[i].RunID < records[j].RunID
	})
}
