// Package tokengen generates cryptographically random, URL-safe opaque
// tokens — used for LISConfig.tenant_api_key and Instrument.api_token, both
// of which must be unguessable bearer credentials rather than sequential or
// derived identifiers.
package tokengen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DefaultLength is the byte length used for instrument and tenant API
// tokens: 32 random bytes, 43 characters once base64url-encoded.
const DefaultLength = 32

// New returns a base64 URL-safe token encoding n random bytes.
func New(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustNew panics on entropy-source failure — acceptable only at process
// startup or in code paths that cannot meaningfully recover from
// crypto/rand being unavailable.
func MustNew(n int) string {
	s, err := New(n)
	if err != nil {
		panic(err)
	}
	return s
}
