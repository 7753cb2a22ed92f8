package domain

// BatchRun summarises one (taxi type, year, month) scoring job.
// Corresponds to batch_runs table in Postgres.
type BatchRun struct {
	BatchID        string // deterministic hash of taxi_type|year|month|model_version
	TaxiType       TaxiType
	Year           int
	Month          int
	InputLocation  string
	OutputLocation string
	ModelVersion   string

	RowsRead     int
	RowsRetained int
	RowsDropped  int

	MeanPredicted  float64
	TotalPredicted float64
	RMSE           *float64 // nil when no actual durations were available

	StartedAt  int64 // Unix ms
	FinishedAt int64 // Unix ms
}
