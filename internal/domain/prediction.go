package domain

import "time"

// PredictionResult is the scored output for one PreparedRecord.
// Corresponds to the predictions table and the batch output file.
type PredictionResult struct {
	PredictionID      string  // deterministic hash of ride_id and model_version
	RideID            string  // synthetic ride identifier
	PredictedDuration float64 // minutes

	// Extended output (nil/empty when unavailable)
	ActualDuration *float64   // minutes
	Diff           *float64   // actual - predicted
	ModelVersion   string     // run id or artifact fingerprint
	PickupTime     *time.Time // source pickup timestamp
	PickupZone     string
	DropoffZone    string

	BatchID   string // owning batch run, empty for online predictions
	Position  int    // row position in the batch output
	CreatedAt int64  // Unix ms
}

// Ride is a single online prediction request.
type Ride struct {
	PickupZone   int64   `json:"PULocationID"`
	DropoffZone  int64   `json:"DOLocationID"`
	TripDistance float64 `json:"trip_distance"`
}

// RidePrediction is the online prediction response.
type RidePrediction struct {
	Duration     float64 `json:"duration"`
	ModelVersion string  `json:"model_version"`
}
