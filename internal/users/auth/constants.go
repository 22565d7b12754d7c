// Copyright (c) 2026 BatchTrack. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// SessionTokenLength is the byte length of the random session token.
	// 32 bytes gives 256 bits of entropy before base64url encoding.
	SessionTokenLength = 32

	// SessionTTL is the absolute lifetime of a session. Sessions are not
	// renewed on activity; after 7 days the user logs in again.
	SessionTTL = 7 * 24 * time.Hour

	// MaxFailedLoginAttempts is the number of consecutive password failures
	// before the account is temporarily locked.
	MaxFailedLoginAttempts = 5

	// LockoutDuration is how long an account stays locked after too many
	// failed attempts.
	LockoutDuration = 15 * time.Minute

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// ResetTokenTTL is the duration a password reset token remains valid.
	ResetTokenTTL = 24 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// VerificationTokenTTL is the duration an email verification token remains valid.
	VerificationTokenTTL = 24 * time.Hour

	// VerificationTokenLength is the byte length of the random verification token.
	VerificationTokenLength = 32

	// BackupCodeCount is the number of single-use recovery codes issued when
	// two-factor authentication is enabled.
	BackupCodeCount = 8

	// BackupCodeLength is the character length of each backup code.
	BackupCodeLength = 10
)
