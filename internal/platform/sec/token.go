// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// # Opaque Tokens

// GenerateSecureToken returns a URL-safe, cryptographically random token.
//
// # Parameters
//   - byteLength: The entropy of the token in bytes (32 for refresh tokens).
//
// # Returns
//   - A base64url string without padding, longer than byteLength.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random source: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the SHA-256 hex digest of an opaque token.
//
// Only the digest is ever persisted; a database leak therefore does not
// expose usable refresh credentials. SHA-256 (not bcrypt) is sufficient here
// because the input is already high-entropy random data.
func HashToken(rawToken string) string {
	digest := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(digest[:])
}
