package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the content hash of a passage body. It is
// deterministic and collision-resistant: equal bodies always produce equal
// fingerprints, distinct bodies collide with negligible probability.
//
// The fingerprint keys the embedding cache together with the model name,
// so an unchanged body never triggers a second provider call.
func Fingerprint(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
