package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/metrics"
)

// MemStore implements Store with mutex-guarded maps. Version checks happen
// under the same lock as the write, so concurrent lifecycle transitions on
// one assignment serialize and the loser sees ErrVersionMismatch.
type MemStore struct {
	mu          sync.RWMutex
	assignments map[string]model.Assignment
	results     map[string]model.SchedulingResult

	maxResults int
}

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithMaxResults bounds how many run results are retained; the oldest run id
// in sort order is evicted first. Zero means unbounded.
func WithMaxResults(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		assignments: make(map[string]model.Assignment),
		results:     make(map[string]model.SchedulingResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutAssignment inserts or replaces an assignment record.
func (s *MemStore) PutAssignment(_ context.Context, a model.Assignment) error {
	if a.ID == "" {
		return fmt.Errorf("put assignment: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
	metrics.UpdateStoredAssignments(len(s.assignments))
	return nil
}

// GetAssignment returns an assignment by id.
func (s *MemStore) GetAssignment(_ context.Context, id string) (model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// UpdateAssignment applies an optimistic-concurrency write.
func (s *MemStore) UpdateAssignment(_ context.Context, a model.Assignment, expectedVersion int64) (model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.assignments[a.ID]
	if !ok {
		return model.Assignment{}, fmt.Errorf("assignment %s: %w", a.ID, ErrNotFound)
	}
	if current.Version != expectedVersion {
		return model.Assignment{}, fmt.Errorf("assignment %s: expected version %d, have %d: %w",
			a.ID, expectedVersion, current.Version, ErrVersionMismatch)
	}
	a.Version = current.Version + 1
	s.assignments[a.ID] = a
	return a, nil
}

// ListAssignments returns every stored assignment ordered by id.
func (s *MemStore) ListAssignments(_ context.Context) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutResult stores a run result, evicting the oldest when bounded.
func (s *MemStore) PutResult(_ context.Context, result model.SchedulingResult) error {
	if result.RunID == "" {
		return fmt.Errorf("put result: missing run id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.RunID] = result
	if s.maxResults > 0 && len(s.results) > s.maxResults {
		ids := make([]string, 0, len(s.results))
		for id := range s.results {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		delete(s.results, ids[0])
	}
	return nil
}

// GetResult returns a stored run result by run id.
func (s *MemStore) GetResult(_ context.Context, runID string) (model.SchedulingResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[runID]
	if !ok {
		return model.SchedulingResult{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return r, nil
}

// Count returns the number of assignments tracked.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assignments)
}
