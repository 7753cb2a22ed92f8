package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/storage"
)

// BatchRunStore implements storage.BatchRunStore using PostgreSQL.
type BatchRunStore struct {
	pool *Pool
}

// NewBatchRunStore creates a new BatchRunStore.
func NewBatchRunStore(pool *Pool) *BatchRunStore {
	return &BatchRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BatchRunStore = (*BatchRunStore)(nil)

const batchRunColumns = `
	batch_id, taxi_type, year, month, input_location, output_location, model_version,
	rows_read, rows_retained, rows_dropped, mean_predicted, total_predicted, rmse,
	started_at, finished_at
`

// Insert adds a new batch run. Returns ErrDuplicateKey if batch_id exists.
func (s *BatchRunStore) Insert(ctx context.Context, r *domain.BatchRun) (err error) {
	if r == nil || r.BatchID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_batch_run", start, err) }()

	query := `INSERT INTO batch_runs (` + batchRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = s.pool.Exec(ctx, query,
		r.BatchID,
		string(r.TaxiType),
		r.Year,
		r.Month,
		r.InputLocation,
		r.OutputLocation,
		r.ModelVersion,
		r.RowsRead,
		r.RowsRetained,
		r.RowsDropped,
		r.MeanPredicted,
		r.TotalPredicted,
		r.RMSE,
		r.StartedAt,
		r.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert batch run: %w", err)
	}
	return nil
}

// GetByID retrieves a batch run by its ID. Returns ErrNotFound if not exists.
func (s *BatchRunStore) GetByID(ctx context.Context, batchID string) (*domain.BatchRun, error) {
	query := `SELECT ` + batchRunColumns + ` FROM batch_runs WHERE batch_id = $1`

	r, err := scanBatchRun(s.pool.QueryRow(ctx, query, batchID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get batch run: %w", err)
	}
	return r, nil
}

// GetAll retrieves all batch runs, ordered by started_at ASC.
func (s *BatchRunStore) GetAll(ctx context.Context) ([]*domain.BatchRun, error) {
	query := `SELECT ` + batchRunColumns + ` FROM batch_runs ORDER BY started_at ASC, batch_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query batch runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.BatchRun
	for rows.Next() {
		r, err := scanBatchRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch runs: %w", err)
	}
	return result, nil
}

func scanBatchRun(row pgx.Row) (*domain.BatchRun, error) {
	var r domain.BatchRun
	var taxiType string
	err := row.Scan(
		&r.BatchID,
		&taxiType,
		&r.Year,
		&r.Month,
		&r.InputLocation,
		&r.OutputLocation,
		&r.ModelVersion,
		&r.RowsRead,
		&r.RowsRetained,
		&r.RowsDropped,
		&r.MeanPredicted,
		&r.TotalPredicted,
		&r.RMSE,
		&r.StartedAt,
		&r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	r.TaxiType = domain.TaxiType(taxiType)
	return &r, nil
}
