// Package hashid computes deterministic content fingerprints for deduplication.
package hashid

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the 64-hex SHA-256 digest of payload.
//
// Callers are responsible for canonicalizing payload before calling this
// function: sorted-key JSON, UTF-8, no insignificant whitespace. Fingerprint
// itself performs no parsing or normalization — it is pure hashing and never
// fails.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
