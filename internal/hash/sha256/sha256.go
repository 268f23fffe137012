// Package sha256 digests the written JSON snapshot.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements film.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex digest of data. Empty input is hashed like
// any other byte slice.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
