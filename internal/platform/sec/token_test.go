// Copyright (c) 2026 BatchTrack. All rights reserved.

package sec_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchtrack/batchtrack/internal/platform/sec"
)

/*
TestGenerateSecureToken verifies encoding, entropy length, and uniqueness.
*/
func TestGenerateSecureToken(t *testing.T) {
	token, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	// base64url decodes back to the requested 32 bytes (256 bits).
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)

	// Two draws must never collide.
	other, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

/*
TestHashToken verifies the digest is deterministic, hex-encoded, and
distinct for distinct tokens.
*/
func TestHashToken(t *testing.T) {
	digest := sec.HashToken("some-session-token")

	assert.Len(t, digest, 64) // sha256 as hex
	assert.Equal(t, digest, sec.HashToken("some-session-token"))
	assert.NotEqual(t, digest, sec.HashToken("some-session-tokeN"))
}
