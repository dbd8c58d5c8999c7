package crypto

import (
	"strings"

	"github.com/google/uuid"
)

// NewNonce returns a fresh request nonce: a time-ordered UUID v7 without
// dashes, 32 hex characters.
func NewNonce() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}
