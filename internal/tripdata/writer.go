package tripdata

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"taxi-duration-lab/internal/domain"
)

// PredictionRow is the basic output layout.
type PredictionRow struct {
	RideID            string  `parquet:"ride_id"`
	PredictedDuration float64 `parquet:"predicted_duration"`
}

// ExtendedPredictionRow adds the source trip and the error against the
// observed duration.
type ExtendedPredictionRow struct {
	RideID            string    `parquet:"ride_id"`
	PickupDatetime    time.Time `parquet:"pickup_datetime"`
	PULocationID      string    `parquet:"PULocationID"`
	DOLocationID      string    `parquet:"DOLocationID"`
	ActualDuration    *float64  `parquet:"actual_duration,optional"`
	PredictedDuration float64   `parquet:"predicted_duration"`
	Diff              *float64  `parquet:"diff,optional"`
	ModelVersion      string    `parquet:"model_version"`
}

// Writer encodes prediction results as uncompressed parquet.
type Writer struct {
	storage  *Storage
	extended bool
}

// NewWriter creates a Writer. extended selects ExtendedPredictionRow.
func NewWriter(storage *Storage, extended bool) *Writer {
	return &Writer{storage: storage, extended: extended}
}

// Write encodes results in order and stores them at location.
func (w *Writer) Write(ctx context.Context, location string, results []domain.PredictionResult) error {
	data, err := EncodePredictions(results, w.extended)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrWrite, location, err)
	}
	return w.storage.WriteAll(ctx, location, data)
}

// EncodePredictions renders results as a parquet file.
func EncodePredictions(results []domain.PredictionResult, extended bool) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	if extended {
		rows := make([]ExtendedPredictionRow, len(results))
		for i, r := range results {
			rows[i] = ExtendedPredictionRow{
				RideID:            r.RideID,
				PULocationID:      r.PickupZone,
				DOLocationID:      r.DropoffZone,
				ActualDuration:    r.ActualDuration,
				PredictedDuration: r.PredictedDuration,
				Diff:              r.Diff,
				ModelVersion:      r.ModelVersion,
			}
			if r.PickupTime != nil {
				rows[i].PickupDatetime = *r.PickupTime
			}
		}
		err = parquet.Write(&buf, rows, parquet.Compression(&parquet.Uncompressed))
	} else {
		rows := make([]PredictionRow, len(results))
		for i, r := range results {
			rows[i] = PredictionRow{RideID: r.RideID, PredictedDuration: r.PredictedDuration}
		}
		err = parquet.Write(&buf, rows, parquet.Compression(&parquet.Uncompressed))
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
