package reporting

import "time"

// Report lists every recorded batch run.
type Report struct {
	GeneratedAt time.Time
	Runs        []RunRow // sorted by (taxi_type, year, month, model_version)
	Totals      Totals
}

// RunRow is one batch run in the report.
type RunRow struct {
	BatchID        string
	TaxiType       string
	Period         string // YYYY-MM
	ModelVersion   string
	RowsRead       int
	RowsRetained   int
	RowsDropped    int
	DropRate       float64
	MeanPredicted  float64
	TotalPredicted float64
	RMSE           *float64
	DurationMs     int64
}

// Totals aggregates all runs.
type Totals struct {
	Runs           int
	RowsRead       int
	RowsRetained   int
	RowsDropped    int
	TotalPredicted float64
}

// RunSummary describes one batch run and its prediction errors.
type RunSummary struct {
	Row         RunRow
	InputPath   string
	OutputPath  string
	GeneratedAt time.Time

	// Quantiles of actual - predicted, nil without actual durations.
	DiffP10 *float64
	DiffP50 *float64
	DiffP90 *float64
	MAE     *float64
}
