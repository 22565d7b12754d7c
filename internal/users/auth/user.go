// Copyright (c) 2026 BatchTrack. All rights reserved.

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session) and the logic for
credential verification, brute-force lockout, opaque session tokens,
time-based two-factor authentication, and account recovery.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import "time"

// # Domain Entities

// User represents a registered member of a BatchTrack installation.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.

	// Brute-force lockout state.
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`

	// Two-factor authentication state. The secret and backup codes never
	// leave the server after enrollment.
	TwoFactorEnabled bool     `json:"two_factor_enabled"`
	TwoFactorSecret  string   `json:"-"`
	BackupCodes      []string `json:"-"`

	// Recovery token state. Only digests are stored, never raw tokens.
	PasswordResetToken      string     `json:"-"`
	PasswordResetExpiry     *time.Time `json:"-"`
	EmailVerificationToken  string     `json:"-"`
	EmailVerificationExpiry *time.Time `json:"-"`

	IsEmailVerified bool       `json:"is_email_verified"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Session represents an active opaque-token session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the session token. Omitted for security.
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session's absolute lifetime has passed.
func (session *Session) Expired(now time.Time) bool {
	return !now.Before(session.ExpiresAt)
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldLogin           = "login"
	FieldToken           = "token"
	FieldCode            = "code"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldUser            = "user"
	FieldMessage         = "message"
)
