// Copyright (c) 2026 BatchTrack. All rights reserved.

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchtrack/batchtrack/internal/platform/sec"
)

/*
TestHashPassword_RoundTrip verifies that a hashed password verifies against
its own plaintext and rejects every other plaintext.
*/
func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := sec.HashPassword("Secret123!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	// Bcrypt is salted: the digest never contains or equals the input.
	assert.NotEqual(t, "Secret123!", hash)

	assert.True(t, sec.CheckPasswordHash("Secret123!", hash))
	assert.False(t, sec.CheckPasswordHash("secret123!", hash))
	assert.False(t, sec.CheckPasswordHash("", hash))
}

/*
TestHashPassword_NonDeterministic verifies that hashing the same password
twice yields different digests (fresh salt each time) that both verify.
*/
func TestHashPassword_NonDeterministic(t *testing.T) {
	first, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	second, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", first))
	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", second))
}

/*
TestCheckPasswordHash_MalformedHash verifies that a corrupted stored hash
reads as a mismatch instead of a fault.
*/
func TestCheckPasswordHash_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"garbage", "not-a-bcrypt-hash"},
		{"truncated", "$2a$12$abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, sec.CheckPasswordHash("anything", tt.hash))
		})
	}
}
