package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/storage"
)

// PredictionStore implements storage.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *Pool
}

// NewPredictionStore creates a new PredictionStore.
func NewPredictionStore(pool *Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PredictionStore = (*PredictionStore)(nil)

var predictionColumns = []string{
	"prediction_id", "ride_id", "batch_id", "position", "predicted_duration",
	"actual_duration", "diff", "model_version", "pickup_time_ms",
	"pickup_zone", "dropoff_zone", "created_at",
}

const selectPredictions = `
	SELECT prediction_id, ride_id, batch_id, position, predicted_duration,
		actual_duration, diff, model_version, pickup_time_ms,
		pickup_zone, dropoff_zone, created_at
	FROM predictions
`

// InsertBulk adds multiple predictions atomically with COPY.
// Fails entire batch on any duplicate prediction_id.
func (s *PredictionStore) InsertBulk(ctx context.Context, preds []*domain.PredictionResult) (err error) {
	if len(preds) == 0 {
		return nil
	}
	for _, p := range preds {
		if p == nil || p.PredictionID == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() { observe("insert_predictions", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"predictions"}, predictionColumns,
		pgx.CopyFromSlice(len(preds), func(i int) ([]any, error) {
			p := preds[i]
			return []any{
				p.PredictionID,
				p.RideID,
				p.BatchID,
				p.Position,
				p.PredictedDuration,
				p.ActualDuration,
				p.Diff,
				p.ModelVersion,
				pickupMillis(p.PickupTime),
				p.PickupZone,
				p.DropoffZone,
				p.CreatedAt,
			}, nil
		}))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy predictions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRideID retrieves all predictions for a ride, ordered by created_at ASC.
func (s *PredictionStore) GetByRideID(ctx context.Context, rideID string) ([]*domain.PredictionResult, error) {
	rows, err := s.pool.Query(ctx, selectPredictions+`
		WHERE ride_id = $1
		ORDER BY created_at ASC, prediction_id ASC
	`, rideID)
	if err != nil {
		return nil, fmt.Errorf("query by ride id: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// GetByBatchID retrieves all predictions of a batch run, ordered by position ASC.
func (s *PredictionStore) GetByBatchID(ctx context.Context, batchID string) ([]*domain.PredictionResult, error) {
	rows, err := s.pool.Query(ctx, selectPredictions+`
		WHERE batch_id = $1
		ORDER BY position ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query by batch id: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

func scanPredictions(rows pgx.Rows) ([]*domain.PredictionResult, error) {
	var result []*domain.PredictionResult
	for rows.Next() {
		var p domain.PredictionResult
		var pickupMs *int64
		err := rows.Scan(
			&p.PredictionID,
			&p.RideID,
			&p.BatchID,
			&p.Position,
			&p.PredictedDuration,
			&p.ActualDuration,
			&p.Diff,
			&p.ModelVersion,
			&pickupMs,
			&p.PickupZone,
			&p.DropoffZone,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if pickupMs != nil {
			t := time.UnixMilli(*pickupMs).UTC()
			p.PickupTime = &t
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return result, nil
}

func pickupMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
