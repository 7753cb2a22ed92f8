package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/storage"
)

func ptr[T any](v T) *T {
	return &v
}

func TestPredictionStore_InsertBulk(t *testing.T) {
	store := NewPredictionStore()
	ctx := context.Background()

	// Test empty insert
	require.NoError(t, store.InsertBulk(ctx, nil))

	preds := []*domain.PredictionResult{
		{PredictionID: "p2", RideID: "2022/01_7", BatchID: "b1", Position: 1, PredictedDuration: 12, ActualDuration: ptr(10.0)},
		{PredictionID: "p1", RideID: "2022/01_3", BatchID: "b1", Position: 0, PredictedDuration: 8},
		{PredictionID: "p3", RideID: "online-1", PredictedDuration: 5, CreatedAt: 2},
	}
	require.NoError(t, store.InsertBulk(ctx, preds))

	got, err := store.GetByBatchID(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].PredictionID)
	assert.Equal(t, "p2", got[1].PredictionID)
	assert.Equal(t, 10.0, *got[1].ActualDuration)

	// Returned values are copies.
	*got[1].ActualDuration = 99
	again, err := store.GetByBatchID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *again[1].ActualDuration)

	byRide, err := store.GetByRideID(ctx, "online-1")
	require.NoError(t, err)
	require.Len(t, byRide, 1)
	assert.Empty(t, byRide[0].BatchID)

	none, err := store.GetByRideID(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPredictionStore_Duplicates(t *testing.T) {
	store := NewPredictionStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.PredictionResult{{PredictionID: "p1", RideID: "r1"}}))

	err := store.InsertBulk(ctx, []*domain.PredictionResult{
		{PredictionID: "p2", RideID: "r2"},
		{PredictionID: "p1", RideID: "r1"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Batch is atomic: p2 was not inserted.
	got, err := store.GetByRideID(ctx, "r2")
	require.NoError(t, err)
	assert.Empty(t, got)

	err = store.InsertBulk(ctx, []*domain.PredictionResult{
		{PredictionID: "p4", RideID: "r4"},
		{PredictionID: "p4", RideID: "r4"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.PredictionResult{{RideID: "r5"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestBatchRunStore(t *testing.T) {
	store := NewBatchRunStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.BatchRun{BatchID: "b2", TaxiType: domain.TaxiTypeFHV, Year: 2022, Month: 2, StartedAt: 200}))
	require.NoError(t, store.Insert(ctx, &domain.BatchRun{BatchID: "b1", TaxiType: domain.TaxiTypeFHV, Year: 2022, Month: 1, StartedAt: 100, RMSE: ptr(5.5)}))

	err := store.Insert(ctx, &domain.BatchRun{BatchID: "b1"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.Insert(ctx, &domain.BatchRun{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := store.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Month)
	assert.Equal(t, 5.5, *got.RMSE)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b1", all[0].BatchID)
	assert.Equal(t, "b2", all[1].BatchID)
}
