package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns an opaque identifier for a user ID, safe for cache keys.
func HashUserKey(s string) string {
	return ContentDigest([]byte(s))
}

// ContentDigest is the hex sha256 of b.
func ContentDigest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
