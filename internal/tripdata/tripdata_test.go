package tripdata

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/features"
)

// fhvRow mirrors the FHV trip file layout.
type fhvRow struct {
	DispatchingBase string    `parquet:"dispatching_base_num"`
	Pickup          time.Time `parquet:"pickup_datetime"`
	Dropoff         time.Time `parquet:"dropOff_datetime"`
	PULocationID    *float64  `parquet:"PUlocationID,optional"`
	DOLocationID    *float64  `parquet:"DOlocationID,optional"`
	SRFlag          *int64    `parquet:"SR_Flag,optional"`
}

// greenRow mirrors the green trip file layout.
type greenRow struct {
	Pickup       time.Time `parquet:"lpep_pickup_datetime"`
	Dropoff      time.Time `parquet:"lpep_dropoff_datetime"`
	PULocationID *int64    `parquet:"PULocationID,optional"`
	DOLocationID *int64    `parquet:"DOLocationID,optional"`
	TripDistance *float64  `parquet:"trip_distance,optional"`
}

func dt(hour, minute, second int) time.Time {
	return time.Date(2022, 1, 1, hour, minute, second, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func encode[T any](t *testing.T, rows []T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, parquet.Write(&buf, rows))
	return buf.Bytes()
}

func TestDecodeTrips_FHV(t *testing.T) {
	data := encode(t, []fhvRow{
		{DispatchingBase: "B00001", Pickup: dt(1, 2, 0), Dropoff: dt(1, 10, 0), PULocationID: nil, DOLocationID: nil},
		{DispatchingBase: "B00002", Pickup: dt(1, 2, 0), Dropoff: dt(1, 10, 0), PULocationID: ptr(1.0), DOLocationID: ptr(1.0)},
		{DispatchingBase: "B00003", Pickup: dt(2, 2, 0), Dropoff: dt(2, 2, 59), PULocationID: ptr(1.0), DOLocationID: nil},
		{DispatchingBase: "B00004", Pickup: dt(1, 2, 0), Dropoff: dt(2, 2, 1), PULocationID: nil, DOLocationID: ptr(1.0)},
	})

	got, err := DecodeTrips(data, domain.TaxiTypeFHV.Columns())
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.True(t, got[0].PickupTime.Equal(dt(1, 2, 0)))
	assert.True(t, got[0].DropoffTime.Equal(dt(1, 10, 0)))
	assert.Nil(t, got[0].PickupZone)
	assert.Nil(t, got[0].DropoffZone)
	assert.Nil(t, got[0].TripDistance)

	require.NotNil(t, got[1].PickupZone)
	assert.Equal(t, int64(1), *got[1].PickupZone)
	require.NotNil(t, got[1].DropoffZone)
	assert.Equal(t, int64(1), *got[1].DropoffZone)

	require.NotNil(t, got[2].PickupZone)
	assert.Nil(t, got[2].DropoffZone)
	assert.True(t, got[3].DropoffTime.Equal(dt(2, 2, 1)))
}

// fhvSparseRow is an FHV layout whose dropoff column is nullable.
type fhvSparseRow struct {
	Pickup  time.Time  `parquet:"pickup_datetime"`
	Dropoff *time.Time `parquet:"dropOff_datetime,optional"`
}

func TestDecodeTrips_NullTimestamp(t *testing.T) {
	data := encode(t, []fhvSparseRow{
		{Pickup: dt(1, 2, 0), Dropoff: ptr(dt(1, 10, 0))},
		{Pickup: dt(1, 2, 0), Dropoff: nil},
		{Pickup: dt(3, 0, 0), Dropoff: ptr(dt(3, 20, 0))},
	})

	got, err := DecodeTrips(data, domain.TaxiTypeFHV.Columns())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[1].DropoffTime.IsZero())

	prepared := features.Prepare(got)
	require.Len(t, prepared, 2)
	assert.Equal(t, 0, prepared[0].SourceIndex)
	assert.Equal(t, 2, prepared[1].SourceIndex)

	features.AssignRideIDs(prepared, 2022, 1, false)
	assert.Equal(t, "2022/01_2", prepared[1].RideID)
}

func TestDecodeTrips_Green(t *testing.T) {
	data := encode(t, []greenRow{
		{Pickup: dt(8, 0, 0), Dropoff: dt(8, 12, 30), PULocationID: ptr(int64(74)), DOLocationID: ptr(int64(130)), TripDistance: ptr(3.2)},
		{Pickup: dt(9, 0, 0), Dropoff: dt(9, 5, 0), TripDistance: nil},
	})

	got, err := DecodeTrips(data, domain.TaxiTypeGreen.Columns())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(74), *got[0].PickupZone)
	assert.Equal(t, int64(130), *got[0].DropoffZone)
	assert.InDelta(t, 3.2, *got[0].TripDistance, 1e-9)
	assert.Nil(t, got[1].TripDistance)
	assert.Nil(t, got[1].PickupZone)
}

func TestDecodeTrips_MissingColumn(t *testing.T) {
	data := encode(t, []greenRow{{Pickup: dt(8, 0, 0), Dropoff: dt(8, 1, 0)}})

	_, err := DecodeTrips(data, domain.TaxiTypeFHV.Columns())
	assert.Error(t, err)
}

func TestReader_Read_Errors(t *testing.T) {
	ctx := context.Background()
	r := NewReader(NewStorage(""), domain.TaxiTypeFHV)

	_, err := r.Read(ctx, filepath.Join(t.TempDir(), "absent.parquet"))
	assert.ErrorIs(t, err, ErrRead)

	garbage := filepath.Join(t.TempDir(), "garbage.parquet")
	require.NoError(t, os.WriteFile(garbage, []byte("not parquet"), 0644))
	_, err = r.Read(ctx, garbage)
	assert.ErrorIs(t, err, ErrRead)

	_, err = r.Read(ctx, "gs://bucket/key.parquet")
	assert.ErrorIs(t, err, ErrUnsupportedLocation)
}

func TestReader_Read_HTTP(t *testing.T) {
	data := encode(t, []fhvRow{{Pickup: dt(1, 0, 0), Dropoff: dt(1, 30, 0), PULocationID: ptr(5.0)}})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fhv_tripdata_2022-01.parquet" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	r := NewReader(NewStorage(""), domain.TaxiTypeFHV)

	got, err := r.Read(context.Background(), srv.URL+"/fhv_tripdata_2022-01.parquet")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), *got[0].PickupZone)

	_, err = r.Read(context.Background(), srv.URL+"/missing.parquet")
	assert.ErrorIs(t, err, ErrRead)
}

func testResults() []domain.PredictionResult {
	pickup := dt(1, 2, 0)
	return []domain.PredictionResult{
		{
			RideID:            "2022/01_1",
			PredictedDuration: 23.4,
			ActualDuration:    ptr(8.0),
			Diff:              ptr(8.0 - 23.4),
			ModelVersion:      "abc",
			PickupTime:        &pickup,
			PickupZone:        "1",
			DropoffZone:       "1",
		},
		{
			RideID:            "2022/01_3",
			PredictedDuration: 10.5,
			ActualDuration:    ptr(60.0),
			Diff:              ptr(60.0 - 10.5),
			ModelVersion:      "abc",
			PickupTime:        &pickup,
			PickupZone:        "-1",
			DropoffZone:       "1",
		},
	}
}

func TestWriter_Basic(t *testing.T) {
	out := filepath.Join(t.TempDir(), "taxi_type=fhv", "year=2022", "month=01", "predictions.parquet")

	w := NewWriter(NewStorage(""), false)
	require.NoError(t, w.Write(context.Background(), out, testResults()))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	stat, err := f.Stat()
	require.NoError(t, err)

	pf, err := parquet.OpenFile(f, stat.Size())
	require.NoError(t, err)

	fields := pf.Schema().Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "ride_id", fields[0].Name())
	assert.Equal(t, "predicted_duration", fields[1].Name())

	for _, rg := range pf.Metadata().RowGroups {
		for _, cc := range rg.Columns {
			assert.Equal(t, format.Uncompressed, cc.MetaData.Codec)
		}
	}

	rows, err := parquet.Read[PredictionRow](f, stat.Size())
	require.NoError(t, err)
	assert.Equal(t, []PredictionRow{
		{RideID: "2022/01_1", PredictedDuration: 23.4},
		{RideID: "2022/01_3", PredictedDuration: 10.5},
	}, rows)
}

func TestWriter_Extended(t *testing.T) {
	out := filepath.Join(t.TempDir(), "predictions.parquet")

	w := NewWriter(NewStorage(""), true)
	require.NoError(t, w.Write(context.Background(), out, testResults()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	rows, err := parquet.Read[ExtendedPredictionRow](bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2022/01_1", rows[0].RideID)
	assert.Equal(t, "1", rows[0].PULocationID)
	assert.Equal(t, "-1", rows[1].PULocationID)
	assert.Equal(t, 8.0, *rows[0].ActualDuration)
	assert.InDelta(t, -15.4, *rows[0].Diff, 1e-9)
	assert.Equal(t, "abc", rows[1].ModelVersion)
	assert.True(t, rows[0].PickupDatetime.Equal(dt(1, 2, 0)))
}

func TestWriter_Empty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.parquet")

	w := NewWriter(NewStorage(""), false)
	require.NoError(t, w.Write(context.Background(), out, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	rows, err := parquet.Read[PredictionRow](bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriter_HTTPUnsupported(t *testing.T) {
	w := NewWriter(NewStorage(""), false)
	err := w.Write(context.Background(), "https://example.com/out.parquet", testResults())
	assert.ErrorIs(t, err, ErrUnsupportedLocation)
}

func testLogger(t *testing.T) *log.Logger {
	return log.New(testWriter{t}, "[fetch] ", 0)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

func TestDownloader_Fetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/fhv_tripdata_2021-03.parquet" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("PAR1"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(srv.URL+"/{taxi_type}_tripdata_{year:04d}-{month:02d}.parquet", dir, testLogger(t))

	assert.Equal(t, srv.URL+"/fhv_tripdata_2021-01.parquet", d.URL(domain.TaxiTypeFHV, 2021, 1))

	paths, err := d.Fetch(context.Background(), domain.TaxiTypeFHV, 2021, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "fhv_tripdata_2021-01.parquet"),
		filepath.Join(dir, "fhv_tripdata_2021-02.parquet"),
	}, paths)
	assert.Equal(t, int32(2), hits.Load())

	// Second run skips existing files.
	_, err = d.Fetch(context.Background(), domain.TaxiTypeFHV, 2021, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	_, err = d.Fetch(context.Background(), domain.TaxiTypeFHV, 2021, 3, 3)
	assert.ErrorIs(t, err, ErrRead)
	_, statErr := os.Stat(filepath.Join(dir, "fhv_tripdata_2021-03.parquet"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = d.Fetch(context.Background(), domain.TaxiTypeFHV, 2021, 5, 4)
	assert.Error(t, err)
}
