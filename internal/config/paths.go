package config

import (
	"fmt"
	"strings"

	"taxi-duration-lab/internal/domain"
)

// Default location templates.
const (
	DefaultInputPattern  = "s3://nyc-duration/fhv/fhv_tripdata_{year:04d}_{month:02d}.parquet"
	DefaultOutputPattern = "s3://nyc-duration/taxi_type=fhv/year={year:04d}/month={month:02d}/predictions.parquet"
)

// Environment variables read by the resolver.
const (
	EnvInputPattern  = "INPUT_FILE_PATTERN"
	EnvOutputPattern = "OUTPUT_FILE_PATTERN"
)

// Resolver computes input/output locations for a (year, month) batch.
type Resolver struct {
	inputPattern  string
	outputPattern string
	taxiType      domain.TaxiType
}

// NewResolver creates a Resolver. Empty patterns fall back to the defaults.
func NewResolver(inputPattern, outputPattern string, taxiType domain.TaxiType) *Resolver {
	if inputPattern == "" {
		inputPattern = DefaultInputPattern
	}
	if outputPattern == "" {
		outputPattern = DefaultOutputPattern
	}
	if taxiType == "" {
		taxiType = domain.TaxiTypeFHV
	}
	return &Resolver{
		inputPattern:  inputPattern,
		outputPattern: outputPattern,
		taxiType:      taxiType,
	}
}

// InputPath formats the input template. Callers validate year and month.
func (r *Resolver) InputPath(year, month int) string {
	return r.format(r.inputPattern, year, month)
}

// OutputPath formats the output template. Callers validate year and month.
func (r *Resolver) OutputPath(year, month int) string {
	return r.format(r.outputPattern, year, month)
}

// format expands {year}, {month} and {taxi_type}. Year is always four digits
// and month two, whether or not the template carries a format spec.
func (r *Resolver) format(pattern string, year, month int) string {
	y := fmt.Sprintf("%04d", year)
	m := fmt.Sprintf("%02d", month)

	replacer := strings.NewReplacer(
		"{year:04d}", y,
		"{year:04}", y,
		"{year}", y,
		"{month:02d}", m,
		"{month:02}", m,
		"{month}", m,
		"{taxi_type}", string(r.taxiType),
	)
	return replacer.Replace(pattern)
}
