package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePredictionID computes a deterministic prediction_id using SHA256.
// Formula: SHA256(ride_id|model_version)
// Returns hex-encoded hash (64 characters).
func ComputePredictionID(rideID string, modelVersion string) string {
	data := fmt.Sprintf("%s|%s", rideID, modelVersion)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
