package storage

import (
	"context"

	"taxi-duration-lab/internal/domain"
)

// PredictionStore provides access to predictions storage.
type PredictionStore interface {
	// InsertBulk adds multiple predictions atomically.
	// Returns ErrDuplicateKey if any prediction_id exists, in the store or the batch.
	InsertBulk(ctx context.Context, preds []*domain.PredictionResult) error

	// GetByRideID retrieves all predictions for a ride, ordered by created_at ASC.
	GetByRideID(ctx context.Context, rideID string) ([]*domain.PredictionResult, error)

	// GetByBatchID retrieves all predictions of a batch run, ordered by position ASC.
	GetByBatchID(ctx context.Context, batchID string) ([]*domain.PredictionResult, error)
}

// BatchRunStore provides access to batch_runs storage.
type BatchRunStore interface {
	// Insert adds a new batch run. Returns ErrDuplicateKey if batch_id exists.
	Insert(ctx context.Context, r *domain.BatchRun) error

	// GetByID retrieves a batch run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, batchID string) (*domain.BatchRun, error)

	// GetAll retrieves all batch runs, ordered by started_at ASC.
	GetAll(ctx context.Context) ([]*domain.BatchRun, error)
}
