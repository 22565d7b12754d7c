// Copyright (c) 2026 BatchTrack. All rights reserved.

// PostgreSQL implementations of the auth repositories.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
//
// # Concurrency
//
// Counter updates and backup-code consumption are single conditional UPDATE
// statements so that concurrent logins cannot interleave a read-modify-write.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchtrack/batchtrack/internal/platform/apperr"
	"github.com/batchtrack/batchtrack/internal/platform/database/schema"
)

// # User Repository

// Column lists are derived from the schema maps so the scan order and the
// SELECT list share a single source of truth.
var (
	userColumns    = strings.Join(schema.UserAccount.Columns(), ", ")
	sessionColumns = strings.Join(schema.UserSession.Columns(), ", ")
)

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// scanUser hydrates a single User row scanned in [schema.UserAccount.Columns] order.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.TwoFactorEnabled,
		&user.TwoFactorSecret,
		&user.BackupCodes,
		&user.PasswordResetToken,
		&user.PasswordResetExpiry,
		&user.EmailVerificationToken,
		&user.EmailVerificationExpiry,
		&user.IsEmailVerified,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// findUserBy retrieves a single user row matched on one column.
func (repository *PostgresUserRepository) findUserBy(context context.Context, column, operation string, value string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		userColumns, schema.UserAccount.Table, column)

	user, err := scanUser(repository.pool.QueryRow(context, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_%s_failed: %w", operation, err)
	}

	return user, nil
}

/*
Create persists a new user record into the users.account table.

Description: Deep-persists account state, initializing timestamps if absent.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s,
			%s, %s, %s,
			%s, %s, %s
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.Username, schema.UserAccount.Email, schema.UserAccount.Password,
		schema.UserAccount.FailedLoginAttempts, schema.UserAccount.TwoFactorEnabled, schema.UserAccount.BackupCodes,
		schema.UserAccount.IsEmailVerified, schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
	)

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FailedLoginAttempts,
		user.TwoFactorEnabled,
		user.BackupCodes,
		user.IsEmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findUserBy(context, schema.UserAccount.ID, "find_by_id", id)
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE lower(%s) = lower($1)`,
		userColumns, schema.UserAccount.Table, schema.UserAccount.Email)

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
FindByUsername retrieves a user record by their unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findUserBy(context, schema.UserAccount.Username, "find_by_username", username)
}

/*
FindByResetToken retrieves a user by their password reset token digest.

Description: Lookup by digest keeps raw tokens out of the database and out of
query logs. Expiry is enforced by the service against its own clock.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByResetToken(context context.Context, tokenHash string) (*User, error) {
	return repository.findUserBy(context, schema.UserAccount.PasswordResetToken, "find_by_reset_token", tokenHash)
}

/*
FindByVerificationToken retrieves a user by their email verification token digest.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByVerificationToken(context context.Context, tokenHash string) (*User, error) {
	return repository.findUserBy(context, schema.UserAccount.EmailVerificationToken, "find_by_verification_token", tokenHash)
}

/*
UpdatePassword updates only the password hash for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.Password, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
RecordFailedLogin increments the failure counter and applies the lock when the
threshold is reached.

Description: A single conditional UPDATE so that two concurrent failures
cannot each read the same counter value. The CASE expression sets lockeduntil
exactly when the incremented counter crosses the threshold.

Parameters:
  - context: context.Context
  - userID: string
  - threshold: int
  - lockFor: time.Duration

Returns:
  - int: New failure count
  - *time.Time: Lock expiry if a lock is now in force, nil otherwise
  - error: Execution errors
*/
func (repository *PostgresUserRepository) RecordFailedLogin(context context.Context, userID string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = %[2]s + 1,
			%[3]s = CASE
				WHEN %[2]s + 1 >= $2 THEN $3::timestamptz
				ELSE %[3]s
			END,
			%[4]s = NOW()
		WHERE %[5]s = $1
		RETURNING %[2]s, %[3]s`,
		schema.UserAccount.Table,
		schema.UserAccount.FailedLoginAttempts,
		schema.UserAccount.LockedUntil,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	lockExpiry := time.Now().Add(lockFor)

	var attempts int
	var lockedUntil *time.Time
	err := repository.pool.QueryRow(context, query, userID, threshold, lockExpiry).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, fmt.Errorf("postgres_user_repo_record_failed_login_failed: %w", err)
	}

	return attempts, lockedUntil, nil
}

/*
RecordLoginSuccess resets lockout state and stamps the last login time.

Parameters:
  - context: context.Context
  - userID: string
  - at: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) RecordLoginSuccess(context context.Context, userID string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = 0, %s = NULL, %s = $2, %s = $2
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.FailedLoginAttempts, schema.UserAccount.LockedUntil,
		schema.UserAccount.LastLoginAt, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID, at)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_record_login_success_failed: %w", err)
	}

	return nil
}

/*
SaveTwoFactorSecret stores a pending TOTP secret without enabling 2FA.

Parameters:
  - context: context.Context
  - userID: string
  - secret: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SaveTwoFactorSecret(context context.Context, userID, secret string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.TwoFactorSecret, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID, secret)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_save_2fa_secret_failed: %w", err)
	}

	return nil
}

/*
EnableTwoFactor activates two-factor auth and stores the fresh backup codes.

Parameters:
  - context: context.Context
  - userID: string
  - backupCodes: []string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) EnableTwoFactor(context context.Context, userID string, backupCodes []string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = $2, %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.TwoFactorEnabled, schema.UserAccount.BackupCodes, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID, backupCodes)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_enable_2fa_failed: %w", err)
	}

	return nil
}

/*
ConsumeBackupCode removes a single backup code if, and only if, it is present.

Description: The WHERE guard plus array_remove make the check-and-consume a
single atomic statement; two concurrent logins with the same code cannot both
succeed.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - bool: true if the code existed and was consumed
  - error: Execution errors
*/
func (repository *PostgresUserRepository) ConsumeBackupCode(context context.Context, userID, code string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = array_remove(%[2]s, $2), %[3]s = NOW()
		WHERE %[4]s = $1 AND $2 = ANY(%[2]s)`,
		schema.UserAccount.Table,
		schema.UserAccount.BackupCodes,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	tag, err := repository.pool.Exec(context, query, userID, code)
	if err != nil {
		return false, fmt.Errorf("postgres_user_repo_consume_backup_code_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

/*
DisableTwoFactor clears the secret and every remaining backup code.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) DisableTwoFactor(context context.Context, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = FALSE, %s = '', %s = '{}', %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.TwoFactorEnabled, schema.UserAccount.TwoFactorSecret,
		schema.UserAccount.BackupCodes, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_disable_2fa_failed: %w", err)
	}

	return nil
}

/*
SetResetToken stores a password reset token digest, replacing any previous one.

Parameters:
  - context: context.Context
  - userID: string
  - tokenHash: string
  - expiresAt: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetResetToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.PasswordResetToken, schema.UserAccount.PasswordResetExpiry,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_reset_token_failed: %w", err)
	}

	return nil
}

/*
CompleteReset applies the new password hash and clears recovery and lockout
state in one statement.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) CompleteReset(context context.Context, userID, newHash string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2,
			%s = '', %s = NULL,
			%s = 0, %s = NULL,
			%s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.Password,
		schema.UserAccount.PasswordResetToken, schema.UserAccount.PasswordResetExpiry,
		schema.UserAccount.FailedLoginAttempts, schema.UserAccount.LockedUntil,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID, newHash)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_complete_reset_failed: %w", err)
	}

	return nil
}

/*
SetVerificationToken stores an email verification token digest and expiry.

Parameters:
  - context: context.Context
  - userID: string
  - tokenHash: string
  - expiresAt: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetVerificationToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.EmailVerificationToken, schema.UserAccount.EmailVerificationExpiry,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_verification_token_failed: %w", err)
	}

	return nil
}

/*
MarkEmailVerified flips the verified flag and clears the verification token.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) MarkEmailVerified(context context.Context, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE,
			%s = '', %s = NULL,
			%s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.IsEmailVerified,
		schema.UserAccount.EmailVerificationToken, schema.UserAccount.EmailVerificationExpiry,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_email_verified_failed: %w", err)
	}

	return nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a new session record into the users.session table.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		schema.UserSession.Table, sessionColumns,
	)

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
		session.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByTokenHash retrieves a session by its unique token digest.

Description: The row is returned even if expired; the service decides what
expiry means against its own clock so tests can inject time.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Hydrated session metadata
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1`,
		sessionColumns, schema.UserSession.Table, schema.UserSession.TokenHash,
	)

	session := &Session{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_failed: %w", err)
	}

	return session, nil
}

/*
DeleteByTokenHash removes the session with the given token digest.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Deletion failures
*/
func (repository *PostgresSessionRepository) DeleteByTokenHash(context context.Context, tokenHash string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserSession.Table, schema.UserSession.TokenHash)

	_, err := repository.pool.Exec(context, query, tokenHash)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_failed: %w", err)
	}
	return nil
}

/*
DeleteAllForUser removes every session belonging to the user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: Number of sessions removed
  - error: Batch deletion failures
*/
func (repository *PostgresSessionRepository) DeleteAllForUser(context context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserSession.Table, schema.UserSession.UserID)

	tag, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_all_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Parameters:
  - context: context.Context
  - now: time.Time

Returns:
  - int64: Number of sessions removed
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s <= $1`,
		schema.UserSession.Table, schema.UserSession.ExpiresAt)

	tag, err := repository.pool.Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
