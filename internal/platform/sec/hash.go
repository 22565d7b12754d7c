// Copyright (c) 2026 BatchTrack. All rights reserved.

// Package sec provides the cryptographic primitives for the identity core.
//
// # Architecture
//
// This package isolates security-sensitive code (password hashing, token
// generation, TOTP validation) from the domain logic. It holds no state and
// is consumed by the application layer through plain function calls.
package sec

import (
	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost is the bcrypt work factor. Cost 12 keeps a single hash in
// the low hundreds of milliseconds on commodity hardware, which is the floor
// for resisting offline brute force against a leaked database.
const passwordHashCost = 12

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// The output embeds the salt and the cost factor, so no separate storage is
// needed and the cost can be raised later without invalidating old hashes.
func HashPassword(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its stored hash.
//
// It reports false for any mismatch, including a malformed stored hash; a
// corrupted row must read as "wrong password", never as a server fault.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
