package memory

import (
	"context"
	"sort"
	"sync"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/storage"
)

// PredictionStore is an in-memory implementation of storage.PredictionStore.
type PredictionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PredictionResult // keyed by prediction_id
}

// NewPredictionStore creates a new in-memory prediction store.
func NewPredictionStore() *PredictionStore {
	return &PredictionStore{
		data: make(map[string]*domain.PredictionResult),
	}
}

// Compile-time interface check.
var _ storage.PredictionStore = (*PredictionStore)(nil)

// InsertBulk adds multiple predictions atomically. Fails entire batch on any duplicate.
func (s *PredictionStore) InsertBulk(_ context.Context, preds []*domain.PredictionResult) error {
	if len(preds) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		if p == nil || p.PredictionID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[p.PredictionID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[p.PredictionID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[p.PredictionID] = struct{}{}
	}

	for _, p := range preds {
		s.data[p.PredictionID] = clonePrediction(p)
	}
	return nil
}

// GetByRideID retrieves all predictions for a ride, ordered by created_at ASC.
func (s *PredictionStore) GetByRideID(_ context.Context, rideID string) ([]*domain.PredictionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PredictionResult
	for _, p := range s.data {
		if p.RideID == rideID {
			result = append(result, clonePrediction(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].PredictionID < result[j].PredictionID
	})
	return result, nil
}

// GetByBatchID retrieves all predictions of a batch run, ordered by position ASC.
func (s *PredictionStore) GetByBatchID(_ context.Context, batchID string) ([]*domain.PredictionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PredictionResult
	for _, p := range s.data {
		if p.BatchID == batchID {
			result = append(result, clonePrediction(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	return result, nil
}

// clonePrediction deep-copies the nullable fields.
func clonePrediction(p *domain.PredictionResult) *domain.PredictionResult {
	c := *p
	if p.ActualDuration != nil {
		v := *p.ActualDuration
		c.ActualDuration = &v
	}
	if p.Diff != nil {
		v := *p.Diff
		c.Diff = &v
	}
	if p.PickupTime != nil {
		v := *p.PickupTime
		c.PickupTime = &v
	}
	return &c
}
