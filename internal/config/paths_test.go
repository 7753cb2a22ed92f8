package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-duration-lab/internal/domain"
)

func TestResolver_Defaults(t *testing.T) {
	r := NewResolver("", "", "")

	assert.Equal(t, "s3://nyc-duration/fhv/fhv_tripdata_2022_03.parquet", r.InputPath(2022, 3))
	assert.Equal(t, "s3://nyc-duration/taxi_type=fhv/year=2022/month=03/predictions.parquet", r.OutputPath(2022, 3))
}

func TestResolver_EnvOverride(t *testing.T) {
	t.Setenv(EnvInputPattern, "s3://other/{year}-{month}.parquet")
	t.Setenv(EnvOutputPattern, "out/{taxi_type}/{year:04d}/{month:02d}.parquet")

	cfg, err := FromEnv()
	require.NoError(t, err)

	r := cfg.Resolver()
	assert.Equal(t, "s3://other/2021-01.parquet", r.InputPath(2021, 1))
	assert.Equal(t, "out/fhv/2021/01.parquet", r.OutputPath(2021, 1))
}

func TestResolver_ZeroPadding(t *testing.T) {
	r := NewResolver("in_{year}_{month}", "out_{year:04d}_{month:02d}", domain.TaxiTypeGreen)

	tests := []struct {
		year, month int
		wantIn      string
		wantOut     string
	}{
		{2021, 1, "in_2021_01", "out_2021_01"},
		{2021, 12, "in_2021_12", "out_2021_12"},
		{999, 7, "in_0999_07", "out_0999_07"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.wantIn, r.InputPath(tt.year, tt.month))
		assert.Equal(t, tt.wantOut, r.OutputPath(tt.year, tt.month))
	}
}

func TestValidatePeriod(t *testing.T) {
	assert.NoError(t, ValidatePeriod(2022, 3))
	assert.NoError(t, ValidatePeriod(1, 1))
	assert.NoError(t, ValidatePeriod(9999, 12))

	assert.ErrorIs(t, ValidatePeriod(2022, 0), ErrInvalidPeriod)
	assert.ErrorIs(t, ValidatePeriod(2022, 13), ErrInvalidPeriod)
	assert.ErrorIs(t, ValidatePeriod(0, 5), ErrInvalidPeriod)
	assert.ErrorIs(t, ValidatePeriod(10000, 5), ErrInvalidPeriod)
}

func TestPreviousMonth(t *testing.T) {
	y, m := PreviousMonth(time.Date(2021, 6, 15, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, 2021, y)
	assert.Equal(t, 5, m)

	y, m = PreviousMonth(time.Date(2022, 1, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, 2021, y)
	assert.Equal(t, 12, m)

	// March 31 must not roll into March via February 31
	y, m = PreviousMonth(time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2021, y)
	assert.Equal(t, 2, m)
}
