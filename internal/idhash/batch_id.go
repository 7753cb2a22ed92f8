package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"taxi-duration-lab/internal/domain"
)

// ComputeBatchID computes a deterministic batch_id using SHA256.
// Formula: SHA256(taxi_type|year|month|model_version)
// Returns hex-encoded hash (64 characters).
func ComputeBatchID(
	taxiType domain.TaxiType,
	year int,
	month int,
	modelVersion string,
) string {
	data := fmt.Sprintf("%s|%04d|%02d|%s",
		string(taxiType),
		year,
		month,
		modelVersion,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
