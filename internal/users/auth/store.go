// Copyright (c) 2026 BatchTrack. All rights reserved.

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByResetToken returns the account holding the given reset token digest.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByResetToken(context context.Context, tokenHash string) (*User, error)

	/*
		FindByVerificationToken returns the account holding the given
		email verification token digest.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByVerificationToken(context context.Context, tokenHash string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		RecordFailedLogin atomically increments the failure counter and, if the
		threshold is reached, sets the lock expiry in the same statement.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - threshold: int (failures that trigger a lock)
		  - lockFor: time.Duration

		Returns:
		  - int: New failure count
		  - *time.Time: Lock expiry if a lock was applied, nil otherwise
		  - error: Persistence failures
	*/
	RecordFailedLogin(context context.Context, userID string, threshold int, lockFor time.Duration) (int, *time.Time, error)

	/*
		RecordLoginSuccess resets the failure counter, clears any lock, and
		stamps the last-login time.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	RecordLoginSuccess(context context.Context, userID string, at time.Time) error

	/*
		SaveTwoFactorSecret stores a pending TOTP secret. The secret is not
		active until EnableTwoFactor confirms enrollment.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - secret: string

		Returns:
		  - error: Persistence failures
	*/
	SaveTwoFactorSecret(context context.Context, userID, secret string) error

	/*
		EnableTwoFactor activates two-factor auth and stores the backup codes.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - backupCodes: []string

		Returns:
		  - error: Persistence failures
	*/
	EnableTwoFactor(context context.Context, userID string, backupCodes []string) error

	/*
		ConsumeBackupCode atomically removes a single backup code if present.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - code: string

		Returns:
		  - bool: true if the code existed and was consumed
		  - error: Persistence failures
	*/
	ConsumeBackupCode(context context.Context, userID, code string) (bool, error)

	/*
		DisableTwoFactor clears the secret and all backup codes.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	DisableTwoFactor(context context.Context, userID string) error

	/*
		SetResetToken stores a password reset token digest and its expiry,
		replacing any previous one.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetResetToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error

	/*
		CompleteReset sets the new password hash, clears the reset token, and
		resets the lockout state in a single statement.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	CompleteReset(context context.Context, userID, newHash string) error

	/*
		SetVerificationToken stores an email verification token digest and expiry.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetVerificationToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error

	/*
		MarkEmailVerified flips isemailverified and clears the verification token.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkEmailVerified(context context.Context, userID string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for opaque-token sessions.
//
// Sessions are removed physically; there is no revocation flag. A token that
// resolves to no row is simply invalid.
type SessionRepository interface {

	/*
		Create persists a new session for an authenticated login.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the session matching the given token digest,
		expired or not. Expiry is judged by the caller against its own clock.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		DeleteByTokenHash removes the session with the given token digest.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteByTokenHash(context context.Context, tokenHash string) error

	/*
		DeleteAllForUser removes every session belonging to the userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - int64: Number of sessions removed
		  - error: Persistence failures
	*/
	DeleteAllForUser(context context.Context, userID string) (int64, error)

	/*
		DeleteExpired physically removes sessions whose ExpiresAt is in the past.

		Parameters:
		  - context: context.Context
		  - now: time.Time

		Returns:
		  - int64: Number of sessions removed
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}
