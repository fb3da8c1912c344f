package ws

import "crypto/rand"

// NewMaskKey generates a fresh per-frame masking key as RFC 6455
// requires for every client-to-server frame.
func NewMaskKey() [4]byte {
	var key [4]byte
	_, _ = rand.Read(key[:])
	return key
}
