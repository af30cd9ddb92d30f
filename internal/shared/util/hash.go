package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a filesystem-safe identifier for an arbitrary key.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashPrefix returns the first n hex characters of HashKey(s). n is clamped
// to the full digest length.
func HashPrefix(s string, n int) string {
	h := HashKey(s)
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}
