// Copyright (c) 2026 BatchTrack. All rights reserved.

package auth

import (
	"fmt"
	"net/http"

	"github.com/batchtrack/batchtrack/internal/platform/apperr"
)

// # Error Taxonomy

// Machine-readable error codes specific to the authentication domain.
// Clients branch on these codes; the messages are advisory.
const (
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeAccountLocked        = "ACCOUNT_LOCKED"
	CodeTwoFactorRequired    = "TWO_FACTOR_REQUIRED"
	CodeInvalidTwoFactorCode = "INVALID_TWO_FACTOR_CODE"
	CodeTokenExpiredInvalid  = "TOKEN_EXPIRED_OR_INVALID"
)

// ErrInvalidCredentials is the generic failure for a wrong login or password.
// The message never reveals whether the account exists.
func ErrInvalidCredentials() *apperr.AppError {
	return apperr.New(CodeInvalidCredentials, "Invalid login credentials", http.StatusUnauthorized)
}

// ErrAccountLocked signals that too many failed attempts have locked the account.
func ErrAccountLocked(minutes int) *apperr.AppError {
	return apperr.New(
		CodeAccountLocked,
		fmt.Sprintf("Account temporarily locked. Try again in %d minute(s).", minutes),
		http.StatusLocked,
	)
}

// ErrTwoFactorRequired signals that the password was correct but a second
// factor must be supplied to complete the login.
func ErrTwoFactorRequired() *apperr.AppError {
	return apperr.New(CodeTwoFactorRequired, "Two-factor authentication code required", http.StatusUnauthorized)
}

// ErrInvalidTwoFactorCode signals a wrong TOTP or backup code.
func ErrInvalidTwoFactorCode() *apperr.AppError {
	return apperr.New(CodeInvalidTwoFactorCode, "Invalid two-factor authentication code", http.StatusUnauthorized)
}

// ErrTokenExpiredOrInvalid covers reset, verification and session tokens that
// do not resolve. A single code for all cases avoids oracle behavior.
func ErrTokenExpiredOrInvalid() *apperr.AppError {
	return apperr.New(CodeTokenExpiredInvalid, "Token is expired or invalid", http.StatusUnauthorized)
}
