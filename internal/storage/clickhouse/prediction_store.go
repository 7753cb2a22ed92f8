package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/storage"
)

// existsChunk bounds the IN list of one duplicate check.
const existsChunk = 5000

// PredictionStore implements storage.PredictionStore using ClickHouse.
type PredictionStore struct {
	conn *Conn
}

// NewPredictionStore creates a new PredictionStore.
func NewPredictionStore(conn *Conn) *PredictionStore {
	return &PredictionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PredictionStore = (*PredictionStore)(nil)

// InsertBulk adds multiple predictions. Fails entire batch on duplicate prediction_id.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
func (s *PredictionStore) InsertBulk(ctx context.Context, preds []*domain.PredictionResult) (err error) {
	if len(preds) == 0 {
		return nil
	}

	ids := make([]string, 0, len(preds))
	seen := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		if p == nil || p.PredictionID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[p.PredictionID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.PredictionID] = struct{}{}
		ids = append(ids, p.PredictionID)
	}

	start := time.Now()
	defer func() { observe("insert_predictions", start, err) }()

	exists, err := s.anyExists(ctx, ids)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO predictions (
			prediction_id, ride_id, batch_id, position, predicted_duration,
			actual_duration, diff, model_version, pickup_time_ms,
			pickup_zone, dropoff_zone, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range preds {
		var pickupMs *int64
		if p.PickupTime != nil {
			ms := p.PickupTime.UnixMilli()
			pickupMs = &ms
		}
		err = batch.Append(
			p.PredictionID, p.RideID, p.BatchID, uint32(p.Position), p.PredictedDuration,
			p.ActualDuration, p.Diff, p.ModelVersion, pickupMs,
			p.PickupZone, p.DropoffZone, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRideID retrieves all predictions for a ride, ordered by created_at ASC.
func (s *PredictionStore) GetByRideID(ctx context.Context, rideID string) ([]*domain.PredictionResult, error) {
	rows, err := s.conn.Query(ctx, selectPredictions+`
		WHERE ride_id = ?
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
	rows, err := s.conn.Query(ctx, selectPredictions+`
		WHERE batch_id = ?
		ORDER BY position ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query by batch id: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

const selectPredictions = `
	SELECT prediction_id, ride_id, batch_id, position, predicted_duration,
		actual_duration, diff, model_version, pickup_time_ms,
		pickup_zone, dropoff_zone, created_at
	FROM predictions
`

// anyExists reports whether any of ids is already stored.
func (s *PredictionStore) anyExists(ctx context.Context, ids []string) (bool, error) {
	for lo := 0; lo < len(ids); lo += existsChunk {
		hi := min(lo+existsChunk, len(ids))

		var count uint64
		row := s.conn.QueryRow(ctx, `SELECT count() FROM predictions WHERE prediction_id IN (?)`, ids[lo:hi])
		if err := row.Scan(&count); err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func scanPredictions(rows driver.Rows) ([]*domain.PredictionResult, error) {
	var result []*domain.PredictionResult
	for rows.Next() {
		var (
			p        domain.PredictionResult
			position uint32
			pickupMs *int64
		)
		err := rows.Scan(
			&p.PredictionID, &p.RideID, &p.BatchID, &position, &p.PredictedDuration,
			&p.ActualDuration, &p.Diff, &p.ModelVersion, &pickupMs,
			&p.PickupZone, &p.DropoffZone, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.Position = int(position)
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
