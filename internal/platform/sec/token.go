// Copyright (c) 2026 BatchTrack. All rights reserved.

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

/*
GenerateSecureToken returns an unpredictable, URL-safe token built from
byteLength bytes of entropy. 32 bytes yields the 256 bits required for
session credentials.

Parameters:
  - byteLength: int (entropy in bytes, before encoding)

Returns:
  - string: base64url-encoded token (no padding)
  - error: entropy source failures
*/
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// # Security
//
// Only digests are persisted. A database leak therefore exposes no usable
// session or reset credentials, and looking rows up by digest means the raw
// token never participates in an index comparison (no timing side channel
// on the secret itself).
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
