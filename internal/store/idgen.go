package store

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// RandomToken returns an unguessable ≥128-bit opaque token for use as the
// random component of a minted IRI (§4.1 "random_token is unguessable
// (≥128 bits)") or a bearer token (§4.3). 20 bytes of crypto/rand output
// comfortably clears the bit-strength requirement; URL-safe base64 keeps it
// path-segment safe without escaping.
func RandomToken() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failing means the platform RNG is broken
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// JobID mints an identifier for a delivery queue row. Uniqueness, not
// secrecy, is what matters here, so a UUID is the idiomatic choice.
func JobID() string {
	return uuid.NewString()
}
