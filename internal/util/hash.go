package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint creates a short stable hash over a sequence of strings. Used to
// fingerprint the description set a space was built from, so a served space
// can be traced back to its build input.
func Fingerprint(parts []string) string {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write([]byte(p))
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16] // Use first 16 chars of the hash
}
