package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns an opaque identifier for a stored entity.
func NewID() string {
	return uuid.NewString()
}

// NewShareToken returns 128 bits of entropy as a 32-character hex string.
// The token is the entire capability for anonymous list access, so it has
// to be unguessable.
func NewShareToken() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
