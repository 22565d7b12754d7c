// Copyright (c) 2026 BatchTrack. All rights reserved.

/*
Service orchestration for the authentication domain.

Architecture:

  - Service: Orchestrates business logic (Login, Lockout, 2FA, Recovery).
  - Repository: Abstracted interfaces for Postgres (Users, Sessions).
  - Throttle: Redis-backed source-level rate limit for login attempts.

All handed-out tokens are opaque random strings; only their SHA-256 digests
ever reach storage.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/batchtrack/batchtrack/internal/platform/apperr"
	"github.com/batchtrack/batchtrack/internal/platform/sec"
	"github.com/batchtrack/batchtrack/pkg/uuid"
)

// timeNow is the clock used by the service. Tests replace it to simulate the
// passage of lockout windows and session expiry.
var timeNow = time.Now

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, lockout,
// or session logic must be reviewed carefully.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	throttle          LoginThrottle
	logger            *slog.Logger

	totpIssuer   string
	authRequired bool
}

// NewService constructs a new [Service] with its dependencies.
//
// authRequired is resolved once at startup from installation configuration;
// the service never mutates it.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	throttle LoginThrottle,
	logger *slog.Logger,
	totpIssuer string,
	authRequired bool,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		throttle:          throttle,
		logger:            logger,
		totpIssuer:        totpIssuer,
		authRequired:      authRequired,
	}
}

// AuthRequired reports whether this installation enforces authentication.
func (service *Service) AuthRequired() bool {
	return service.authRequired
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Enrollment of a new member, handling password hashing and
initial verification token state.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify username uniqueness. Return a client-safe Conflict err.
	_, err = service.userRepository.FindByUsername(context, input.Username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		BackupCodes:  []string{},
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// Issue an email verification token as a side effect. BatchTrack is
	// self-hosted and may have no mail relay, so the token is logged for the
	// operator to hand over out of band.
	token, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err != nil {
		service.logger.Warn("verification_token_not_issued",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	} else {
		expiresAt := timeNow().Add(VerificationTokenTTL)
		if err := service.userRepository.SetVerificationToken(context, user.ID, sec.HashToken(token), expiresAt); err != nil {
			service.logger.Warn("verification_token_not_issued",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		} else {
			service.logger.Info("verification_token_issued",
				slog.String("user_id", user.ID),
				slog.String("token", token),
			)
		}
	}

	service.logger.Info("user_registered", slog.String("user_id", user.ID))

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Login         string // Can be Username or Email
	Password      string
	TwoFactorCode string // Optional; required when the account has 2FA enabled
	UserAgent     string
	IPAddress     string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

/*
Login validates user credentials and establishes an opaque-token session.

Description: Applies source throttling, the per-account lockout policy,
constant-time password comparison, and the second factor when enrolled.
A successful login resets the lockout state and stamps lastLoginAt.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session token and user
  - err: Typed auth failures or internal errors
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	now := timeNow()

	// Source-level throttle before any credential work.
	if allowed, _ := service.throttle.Allow(context, input.IPAddress); !allowed {
		return nil, apperr.RateLimited(int(throttleWindow.Seconds()))
	}

	// Flexible login: look up by Email or Username
	user, err := service.userRepository.FindByEmail(context, input.Login)
	if apperr.HasCode(err, "NOT_FOUND") {
		user, err = service.userRepository.FindByUsername(context, input.Login)
	}

	if err != nil {
		// A storage failure is fatal for this request, never an auth verdict.
		if !apperr.HasCode(err, "NOT_FOUND") {
			return nil, err
		}

		// Unknown identifier. Generic failure to prevent enumeration.
		service.logger.Warn("login_failed",
			slog.String("reason", "unknown_identifier"),
			slog.String("ip", input.IPAddress),
		)
		return nil, ErrInvalidCredentials()
	}

	// Lockout is checked before the password: a locked account rejects even
	// the correct password until the window has passed.
	if Locked(user, now) {
		service.logger.Warn("login_rejected_locked", slog.String("user_id", user.ID))
		return nil, ErrAccountLocked(lockoutMinutesLeft(user.LockedUntil, now))
	}

	// Constant-time password verification via bcrypt.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		attempts, lockedUntil, recordErr := service.userRepository.RecordFailedLogin(
			context, user.ID, MaxFailedLoginAttempts, LockoutDuration,
		)
		if recordErr != nil {
			return nil, recordErr
		}

		service.logger.Warn("login_failed",
			slog.String("reason", "wrong_password"),
			slog.String("user_id", user.ID),
			slog.Int("failed_attempts", attempts),
		)

		if lockedUntil != nil && now.Before(*lockedUntil) {
			return nil, ErrAccountLocked(lockoutMinutesLeft(lockedUntil, now))
		}
		return nil, ErrInvalidCredentials()
	}

	// Second factor. A missing code is a distinct, retryable outcome and
	// never counts toward the lockout threshold.
	if user.TwoFactorEnabled {
		if input.TwoFactorCode == "" {
			return nil, ErrTwoFactorRequired()
		}
		ok, err := service.Verify2FA(context, user, input.TwoFactorCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			service.logger.Warn("login_failed",
				slog.String("reason", "invalid_2fa_code"),
				slog.String("user_id", user.ID),
			)
			return nil, ErrInvalidTwoFactorCode()
		}
	}

	// Successful authentication clears the lockout state.
	if err := service.userRepository.RecordLoginSuccess(context, user.ID, now); err != nil {
		return nil, fmt.Errorf("auth_service_login_success_record_failed: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	session, token, err := service.createSession(context, user.ID, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	service.logger.Info("login_succeeded",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)

	return &LoginSession{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// createSession generates a fresh opaque token and persists its session row.
// The raw token is returned to the caller; storage only ever sees the digest.
func (service *Service) createSession(context context.Context, userID, ipAddress, userAgent string) (*Session, string, error) {
	token, err := sec.GenerateSecureToken(SessionTokenLength)
	if err != nil {
		return nil, "", fmt.Errorf("auth_service_session_token_failed: %w", err)
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: sec.HashToken(token),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: timeNow().Add(SessionTTL),
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, "", fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return session, token, nil
}

// # Session Management

/*
VerifySession resolves an opaque session token to a [sec.Principal].

Description: Looks up the token digest, checks absolute expiry against the
service clock, and opportunistically deletes the row if it has lapsed.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *sec.Principal: Identity for downstream handlers
  - err: TokenExpiredOrInvalid or storage failures
*/
func (service *Service) VerifySession(context context.Context, token string) (*sec.Principal, error) {
	tokenHash := sec.HashToken(token)

	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err != nil {
		if apperr.HasCode(err, "NOT_FOUND") {
			return nil, ErrTokenExpiredOrInvalid()
		}
		return nil, err
	}

	if session.Expired(timeNow()) {
		// Inert either way; removing it now saves the sweep a row.
		_ = service.sessionRepository.DeleteByTokenHash(context, tokenHash)
		return nil, ErrTokenExpiredOrInvalid()
	}

	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		if apperr.HasCode(err, "NOT_FOUND") {
			return nil, ErrTokenExpiredOrInvalid()
		}
		return nil, err
	}

	return &sec.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: session.ID,
	}, nil
}

/*
Logout removes the session identified by the given token.

Description: Idempotent; a token that resolves to nothing is already
logged out.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - err: Deletion failures
*/
func (service *Service) Logout(context context.Context, token string) error {
	if err := service.sessionRepository.DeleteByTokenHash(context, sec.HashToken(token)); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

/*
LogoutAll removes every session belonging to the user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: Number of sessions removed
  - err: Deletion failures
*/
func (service *Service) LogoutAll(context context.Context, userID string) (int64, error) {
	removed, err := service.sessionRepository.DeleteAllForUser(context, userID)
	if err != nil {
		return 0, fmt.Errorf("auth_service_logout_all_failed: %w", err)
	}

	service.logger.Info("sessions_revoked",
		slog.String("user_id", userID),
		slog.Int64("count", removed),
	)

	return removed, nil
}

/*
CleanupExpiredSessions removes all sessions past their expiry.

Description: Invoked by the scheduler; the service never schedules itself.

Parameters:
  - context: context.Context

Returns:
  - int64: Number of sessions removed
  - err: Cleanup failures
*/
func (service *Service) CleanupExpiredSessions(context context.Context) (int64, error) {
	removed, err := service.sessionRepository.DeleteExpired(context, timeNow())
	if err != nil {
		return 0, fmt.Errorf("auth_service_cleanup_failed: %w", err)
	}

	if removed > 0 {
		service.logger.Info("expired_sessions_removed", slog.Int64("count", removed))
	}

	return removed, nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Generates an opaque token, stores its digest and a 24-hour
expiry on the user row, and returns the raw token for out-of-band delivery.
An unknown email returns an empty token and no error so that callers cannot
distinguish the outcomes.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: Raw reset token, or "" if the email is unknown
  - err: Generation or persistence errors
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) (string, error) {
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return "", nil
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return "", fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	expiresAt := timeNow().Add(ResetTokenTTL)
	if err := service.userRepository.SetResetToken(context, user.ID, sec.HashToken(token), expiresAt); err != nil {
		return "", fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	service.logger.Info("password_reset_requested", slog.String("user_id", user.ID))

	return token, nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Verifies the token and its expiry, replaces the password hash,
clears the reset token and the lockout state, and revokes every session for
the user. An unknown or expired token changes nothing.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: TokenExpiredOrInvalid or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	user, err := service.userRepository.FindByResetToken(context, sec.HashToken(token))
	if err != nil {
		return ErrTokenExpiredOrInvalid()
	}

	if user.PasswordResetExpiry == nil || !timeNow().Before(*user.PasswordResetExpiry) {
		return ErrTokenExpiredOrInvalid()
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	if err := service.userRepository.CompleteReset(context, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	// Mandatory: a password reset invalidates every prior login.
	if _, err := service.sessionRepository.DeleteAllForUser(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_reset_revoke_sessions_failed: %w", err)
	}

	service.logger.Info("password_reset_completed", slog.String("user_id", user.ID))

	return nil
}

/*
ChangePassword allows an authenticated user to update their credentials.

Description: Verifies the current password, applies the new hash, and revokes
every session so that all devices re-authenticate with the new password.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - err: Unauthorized or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	if _, err := service.sessionRepository.DeleteAllForUser(context, userID); err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}

	service.logger.Info("password_changed", slog.String("user_id", userID))

	return nil
}

/*
VerifyEmail confirms a user's email address using a secure token.

Description: Identical token+expiry pattern as the reset flow, applied to
the isEmailVerified flag instead of the password.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - err: TokenExpiredOrInvalid or database errors
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {
	user, err := service.userRepository.FindByVerificationToken(context, sec.HashToken(token))
	if err != nil {
		return ErrTokenExpiredOrInvalid()
	}

	if user.EmailVerificationExpiry == nil || !timeNow().Before(*user.EmailVerificationExpiry) {
		return ErrTokenExpiredOrInvalid()
	}

	if err := service.userRepository.MarkEmailVerified(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	service.logger.Info("email_verified", slog.String("user_id", user.ID))

	return nil
}

// normalizeBackupCode uppercases a user-supplied backup code so comparison
// against the stored set is case-insensitive.
func normalizeBackupCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
