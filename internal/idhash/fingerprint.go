package idhash

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
)

// fingerprintBytes is how much of the digest a fingerprint keeps.
const fingerprintBytes = 16

// Fingerprint returns a short base58 content digest of a model artifact.
// Used as the model version when none is configured.
func Fingerprint(data []byte) string {
	hash := sha256.Sum256(data)
	return base58.Encode(hash[:fingerprintBytes])
}
