package memory

import (
	"context"
	"sort"
	"sync"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/storage"
)

// BatchRunStore is an in-memory implementation of storage.BatchRunStore.
type BatchRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BatchRun
}

// NewBatchRunStore creates a new in-memory batch run store.
func NewBatchRunStore() *BatchRunStore {
	return &BatchRunStore{
		data: make(map[string]*domain.BatchRun),
	}
}

// Compile-time interface check.
var _ storage.BatchRunStore = (*BatchRunStore)(nil)

// Insert adds a new batch run. Returns ErrDuplicateKey if batch_id exists.
func (s *BatchRunStore) Insert(_ context.Context, r *domain.BatchRun) error {
	if r == nil || r.BatchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.BatchID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[r.BatchID] = cloneBatchRun(r)
	return nil
}

// GetByID retrieves a batch run by its ID. Returns ErrNotFound if not exists.
func (s *BatchRunStore) GetByID(_ context.Context, batchID string) (*domain.BatchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[batchID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneBatchRun(r), nil
}

// GetAll retrieves all batch runs, ordered by started_at ASC.
func (s *BatchRunStore) GetAll(_ context.Context) ([]*domain.BatchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BatchRun, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, cloneBatchRun(r))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt < result[j].StartedAt
		}
		return result[i].BatchID < result[j].BatchID
	})
	return result, nil
}

func cloneBatchRun(r *domain.BatchRun) *domain.BatchRun {
	c := *r
	if r.RMSE != nil {
		v := *r.RMSE
		c.RMSE = &v
	}
	return &c
}
