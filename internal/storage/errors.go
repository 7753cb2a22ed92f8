package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested batch run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a batch_id or prediction_id is already
	// stored. Predictions and runs are written once and never updated.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for nil records or empty keys.
	ErrInvalidInput = errors.New("invalid input")
)
