// Copyright (c) 2026 BatchTrack. All rights reserved.

package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchtrack/batchtrack/internal/platform/apperr"
	"github.com/batchtrack/batchtrack/internal/platform/sec"
	"github.com/batchtrack/batchtrack/pkg/uuid"
)

// # In-memory Fakes

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*User

	// Failure injection: non-nil values are returned verbatim by the
	// corresponding methods to simulate storage outages.
	failFinds           error
	failSetVerification error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*User)}
}

func cloneUser(user *User) *User {
	clone := *user
	clone.BackupCodes = append([]string(nil), user.BackupCodes...)
	return &clone
}

func (repo *memUserRepo) find(match func(*User) bool) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.failFinds != nil {
		return nil, repo.failFinds
	}
	for _, user := range repo.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memUserRepo) FindByID(_ context.Context, id string) (*User, error) {
	return repo.find(func(u *User) bool { return u.ID == id })
}

func (repo *memUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	return repo.find(func(u *User) bool { return u.Email == email })
}

func (repo *memUserRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	return repo.find(func(u *User) bool { return u.Username == username })
}

func (repo *memUserRepo) FindByResetToken(_ context.Context, tokenHash string) (*User, error) {
	return repo.find(func(u *User) bool { return u.PasswordResetToken == tokenHash && tokenHash != "" })
}

func (repo *memUserRepo) FindByVerificationToken(_ context.Context, tokenHash string) (*User, error) {
	return repo.find(func(u *User) bool { return u.EmailVerificationToken == tokenHash && tokenHash != "" })
}

func (repo *memUserRepo) Create(_ context.Context, user *User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[user.ID] = cloneUser(user)
	return nil
}

func (repo *memUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[userID].PasswordHash = newHash
	return nil
}

func (repo *memUserRepo) RecordFailedLogin(_ context.Context, userID string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[userID]
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= threshold {
		lockedUntil := timeNow().Add(lockFor)
		user.LockedUntil = &lockedUntil
	}
	return user.FailedLoginAttempts, user.LockedUntil, nil
}

func (repo *memUserRepo) RecordLoginSuccess(_ context.Context, userID string, at time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[userID]
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &at
	return nil
}

func (repo *memUserRepo) SaveTwoFactorSecret(_ context.Context, userID, secret string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[userID].TwoFactorSecret = secret
	return nil
}

func (repo *memUserRepo) EnableTwoFactor(_ context.Context, userID string, backupCodes []string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[userID]
	user.TwoFactorEnabled = true
	user.BackupCodes = append([]string(nil), backupCodes...)
	return nil
}

func (repo *memUserRepo) ConsumeBackupCode(_ context.Context, userID, code string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[userID]
	for index, candidate := range user.BackupCodes {
		if candidate == code {
			user.BackupCodes = append(user.BackupCodes[:index], user.BackupCodes[index+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (repo *memUserRepo) DisableTwoFactor(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[userID]
	user.TwoFactorEnabled = false
	user.TwoFactorSecret = ""
	user.BackupCodes = nil
	return nil
}

func (repo *memUserRepo) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[userID]
	user.PasswordResetToken = tokenHash
	user.PasswordResetExpiry = &expiresAt
	return nil
}

func (repo *memUserRepo) CompleteReset(_ context.Context, userID, newHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[userID]
	user.PasswordHash = newHash
	user.PasswordResetToken = ""
	user.PasswordResetExpiry = nil
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return nil
}

func (repo *memUserRepo) SetVerificationToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.failSetVerification != nil {
		return repo.failSetVerification
	}
	user := repo.users[userID]
	user.EmailVerificationToken = tokenHash
	user.EmailVerificationExpiry = &expiresAt
	return nil
}

func (repo *memUserRepo) MarkEmailVerified(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[userID]
	user.IsEmailVerified = true
	user.EmailVerificationToken = ""
	user.EmailVerificationExpiry = nil
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*Session // keyed by token hash

	failFind error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*Session)}
}

func (repo *memSessionRepo) Create(_ context.Context, session *Session) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	clone := *session
	repo.sessions[session.TokenHash] = &clone
	return nil
}

func (repo *memSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.failFind != nil {
		return nil, repo.failFind
	}
	session, found := repo.sessions[tokenHash]
	if !found {
		return nil, apperr.NotFound("Session")
	}
	clone := *session
	return &clone, nil
}

func (repo *memSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.sessions, tokenHash)
	return nil
}

func (repo *memSessionRepo) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var removed int64
	for hash, session := range repo.sessions {
		if session.UserID == userID {
			delete(repo.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

func (repo *memSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var removed int64
	for hash, session := range repo.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(repo.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

func (repo *memSessionRepo) count() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.sessions)
}

type allowAllThrottle struct{}

func (allowAllThrottle) Allow(context.Context, string) (bool, error) { return true, nil }

// # Test Harness

// frozenClock pins the service clock to a controllable instant and returns
// a function that advances it.
func frozenClock(t *testing.T, start time.Time) func(time.Duration) {
	t.Helper()
	current := start
	timeNow = func() time.Time { return current }
	t.Cleanup(func() { timeNow = time.Now })
	return func(step time.Duration) { current = current.Add(step) }
}

func newTestService(t *testing.T) (*Service, *memUserRepo, *memSessionRepo) {
	t.Helper()
	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(users, sessions, allowAllThrottle{}, logger, "BatchTrack", true)
	return service, users, sessions
}

func seedUser(t *testing.T, repo *memUserRepo, email, username, password string) *User {
	t.Helper()
	hash, err := sec.HashPassword(password)
	require.NoError(t, err)

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		BackupCodes:  []string{},
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

// authenticatorCode computes the TOTP an authenticator app would display.
func authenticatorCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

// # Login & Lockout

/*
TestLogin_Success verifies the straight-through login path and that a fresh
session carries a 7-day absolute expiry.
*/
func TestLogin_Success(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	frozenClock(t, start)

	service, users, _ := newTestService(t)
	seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")

	session, err := service.Login(context.Background(), LoginInput{
		Login:    "brewer@example.com",
		Password: "Secret123!",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, start.Add(SessionTTL), session.ExpiresAt)
	assert.Equal(t, 0, session.User.FailedLoginAttempts)
	assert.Nil(t, session.User.LockedUntil)
	require.NotNil(t, session.User.LastLoginAt)
	assert.Equal(t, start, *session.User.LastLoginAt)
}

/*
TestLogin_UnknownIdentifier verifies the generic failure for a missing
account; the message must not reveal whether the account exists.
*/
func TestLogin_UnknownIdentifier(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Login(context.Background(), LoginInput{
		Login:    "ghost@example.com",
		Password: "whatever1",
	})

	assert.True(t, apperr.HasCode(err, CodeInvalidCredentials))
}

/*
TestLogin_LockoutScenario runs the canonical lockout sequence: five failed
attempts lock the account, a sixth attempt with the correct password is still
rejected, and after the window elapses the correct password succeeds.
*/
func TestLogin_LockoutScenario(t *testing.T) {
	advance := frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "a@b.com", "ab", "Secret123!")
	ctx := context.Background()

	// 1. Five consecutive failures arm the lock.
	for attempt := 1; attempt <= MaxFailedLoginAttempts; attempt++ {
		_, err := service.Login(ctx, LoginInput{Login: "a@b.com", Password: "wrong"})
		require.Error(t, err)
	}

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxFailedLoginAttempts, stored.FailedLoginAttempts)
	require.NotNil(t, stored.LockedUntil)

	// 2. The sixth attempt fails even with the correct password.
	_, err = service.Login(ctx, LoginInput{Login: "a@b.com", Password: "Secret123!"})
	assert.True(t, apperr.HasCode(err, CodeAccountLocked))

	// 3. After 16 minutes the lock has lapsed and login succeeds.
	advance(16 * time.Minute)

	session, err := service.Login(ctx, LoginInput{Login: "a@b.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, timeNow().Add(SessionTTL), session.ExpiresAt)

	// 4. Success resets the lockout state.
	stored, err = users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

/*
TestLogin_FifthFailureReportsLocked verifies the failure that arms the lock
already reports ACCOUNT_LOCKED instead of the generic credential error.
*/
func TestLogin_FifthFailureReportsLocked(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	var err error
	for attempt := 1; attempt <= MaxFailedLoginAttempts; attempt++ {
		_, err = service.Login(ctx, LoginInput{Login: "brewer", Password: "nope-nope"})
	}

	assert.True(t, apperr.HasCode(err, CodeAccountLocked))
}

// # Sessions

/*
TestVerifySession covers issue-then-verify and expiry after the absolute TTL.
*/
func TestVerifySession(t *testing.T) {
	advance := frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, sessions := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	login, err := service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	require.NoError(t, err)

	// 1. Token resolves immediately after issuance.
	principal, err := service.VerifySession(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "brewer", principal.Username)

	// 2. A garbage token never resolves.
	_, err = service.VerifySession(ctx, "not-a-token")
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))

	// 3. Past the 7-day TTL the same token is rejected and the row reclaimed.
	advance(SessionTTL + time.Minute)

	_, err = service.VerifySession(ctx, login.Token)
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))
	assert.Equal(t, 0, sessions.count())
}

/*
TestLogout verifies single-session revocation and its idempotency.
*/
func TestLogout(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	login, err := service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, login.Token))

	_, err = service.VerifySession(ctx, login.Token)
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))

	// Logging out again is a no-op.
	assert.NoError(t, service.Logout(ctx, login.Token))
}

/*
TestLogoutAll verifies every previously valid token stops resolving.
*/
func TestLogoutAll(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	first, err := service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	require.NoError(t, err)
	second, err := service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	require.NoError(t, err)

	removed, err := service.LogoutAll(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	for _, token := range []string{first.Token, second.Token} {
		_, err = service.VerifySession(ctx, token)
		assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))
	}
}

/*
TestCleanupExpiredSessions verifies the sweep removes only lapsed sessions.
*/
func TestCleanupExpiredSessions(t *testing.T) {
	advance := frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, sessions := newTestService(t)
	seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	stale, err := service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	require.NoError(t, err)

	advance(SessionTTL + time.Hour)

	fresh, err := service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	require.NoError(t, err)

	removed, err := service.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	assert.Equal(t, 1, sessions.count())

	_, err = service.VerifySession(ctx, fresh.Token)
	assert.NoError(t, err)
	_, err = service.VerifySession(ctx, stale.Token)
	assert.Error(t, err)
}

// # Two-Factor Authentication

/*
TestTwoFactor_Enrollment walks the two-phase enrollment: setup stores a
pending secret without enabling 2FA, and confirmation with a live code
enables it and yields exactly 8 unique backup codes.
*/
func TestTwoFactor_Enrollment(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	key, err := service.Setup2FA(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, key.Secret)
	assert.Contains(t, key.ProvisioningURI, "otpauth://totp/")

	// A pending secret alone never grants 2FA-enabled status.
	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.TwoFactorEnabled)

	// A wrong code leaves the state unchanged and retryable.
	_, err = service.Verify2FASetup(ctx, user.ID, "000000")
	assert.True(t, apperr.HasCode(err, CodeInvalidTwoFactorCode))

	backupCodes, err := service.Verify2FASetup(ctx, user.ID, authenticatorCode(t, key.Secret, timeNow()))
	require.NoError(t, err)
	require.Len(t, backupCodes, BackupCodeCount)

	unique := make(map[string]struct{}, len(backupCodes))
	for _, code := range backupCodes {
		unique[code] = struct{}{}
	}
	assert.Len(t, unique, BackupCodeCount)

	stored, err = users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.TwoFactorEnabled)
}

/*
TestLogin_TwoFactor covers code-missing, wrong-code, and valid-TOTP logins
for an enrolled account. Invalid codes do not advance the lockout counter.
*/
func TestLogin_TwoFactor(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	key, err := service.Setup2FA(ctx, user.ID)
	require.NoError(t, err)
	_, err = service.Verify2FASetup(ctx, user.ID, authenticatorCode(t, key.Secret, timeNow()))
	require.NoError(t, err)

	// 1. Correct password without a code is a distinct, retryable outcome.
	_, err = service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	assert.True(t, apperr.HasCode(err, CodeTwoFactorRequired))

	// 2. A wrong code is rejected without touching the failure counter.
	_, err = service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!", TwoFactorCode: "000000"})
	assert.True(t, apperr.HasCode(err, CodeInvalidTwoFactorCode))

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginAttempts)

	// 3. A live authenticator code completes the login.
	session, err := service.Login(ctx, LoginInput{
		Login:         "brewer",
		Password:      "Secret123!",
		TwoFactorCode: authenticatorCode(t, key.Secret, timeNow()),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

/*
TestLogin_BackupCodeSingleUse verifies a backup code works exactly once,
case-insensitively, and is then consumed for good.
*/
func TestLogin_BackupCodeSingleUse(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	key, err := service.Setup2FA(ctx, user.ID)
	require.NoError(t, err)
	backupCodes, err := service.Verify2FASetup(ctx, user.ID, authenticatorCode(t, key.Secret, timeNow()))
	require.NoError(t, err)

	chosen := backupCodes[0]

	// 1. The backup code is accepted lowercase on first use.
	_, err = service.Login(ctx, LoginInput{
		Login:         "brewer",
		Password:      "Secret123!",
		TwoFactorCode: strings.ToLower(chosen),
	})
	require.NoError(t, err)

	// 2. The identical code is rejected on a second login.
	_, err = service.Login(ctx, LoginInput{
		Login:         "brewer",
		Password:      "Secret123!",
		TwoFactorCode: chosen,
	})
	assert.True(t, apperr.HasCode(err, CodeInvalidTwoFactorCode))

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.BackupCodes, BackupCodeCount-1)
}

/*
TestDisable2FA verifies disabling requires a valid code and clears all
two-factor state.
*/
func TestDisable2FA(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	key, err := service.Setup2FA(ctx, user.ID)
	require.NoError(t, err)
	_, err = service.Verify2FASetup(ctx, user.ID, authenticatorCode(t, key.Secret, timeNow()))
	require.NoError(t, err)

	// 1. Wrong code refuses to disable.
	err = service.Disable2FA(ctx, user.ID, "000000")
	assert.True(t, apperr.HasCode(err, CodeInvalidTwoFactorCode))

	// 2. Live code disables and wipes secret plus backup codes.
	err = service.Disable2FA(ctx, user.ID, authenticatorCode(t, key.Secret, timeNow()))
	require.NoError(t, err)

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.TwoFactorEnabled)
	assert.Empty(t, stored.TwoFactorSecret)
	assert.Empty(t, stored.BackupCodes)
}

// # Password Recovery

/*
TestPasswordReset_Flow verifies a valid reset replaces the password, clears
lockout state, and revokes every prior session.
*/
func TestPasswordReset_Flow(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	login, err := service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	require.NoError(t, err)

	token, err := service.RequestPasswordReset(ctx, "brewer@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, service.ResetPassword(ctx, token, "Fresher456!"))

	// Old password no longer verifies; the new one does.
	_, err = service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	assert.True(t, apperr.HasCode(err, CodeInvalidCredentials))

	_, err = service.Login(ctx, LoginInput{Login: "brewer", Password: "Fresher456!"})
	assert.NoError(t, err)

	// Every prior session is gone.
	_, err = service.VerifySession(ctx, login.Token)
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpiry)
}

/*
TestPasswordReset_ExpiredOrUnknownToken verifies that a lapsed or bogus
token fails and changes nothing.
*/
func TestPasswordReset_ExpiredOrUnknownToken(t *testing.T) {
	advance := frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	token, err := service.RequestPasswordReset(ctx, "brewer@example.com")
	require.NoError(t, err)

	// 1. Unknown token.
	err = service.ResetPassword(ctx, "bogus-token", "Fresher456!")
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))

	// 2. Expired token: past the 24h window.
	advance(ResetTokenTTL + time.Minute)
	err = service.ResetPassword(ctx, token, "Fresher456!")
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))

	// 3. The original password still verifies.
	_, err = service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	assert.NoError(t, err)
}

/*
TestPasswordReset_UnknownEmail verifies the flow does not leak account
existence: no token, no error.
*/
func TestPasswordReset_UnknownEmail(t *testing.T) {
	service, _, _ := newTestService(t)

	token, err := service.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
	assert.Empty(t, token)
}

/*
TestChangePassword verifies the current password is required and that all
sessions are revoked afterwards.
*/
func TestChangePassword(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	login, err := service.Login(ctx, LoginInput{Login: "brewer", Password: "Secret123!"})
	require.NoError(t, err)

	// 1. Wrong current password is rejected.
	err = service.ChangePassword(ctx, user.ID, "wrong-current", "Fresher456!")
	assert.Error(t, err)

	// 2. Correct current password applies the change and revokes sessions.
	require.NoError(t, service.ChangePassword(ctx, user.ID, "Secret123!", "Fresher456!"))

	_, err = service.VerifySession(ctx, login.Token)
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))

	_, err = service.Login(ctx, LoginInput{Login: "brewer", Password: "Fresher456!"})
	assert.NoError(t, err)
}

// # Registration & Email Verification

/*
TestRegister verifies enrollment, duplicate rejection, and that the stored
hash verifies the original password.
*/
func TestRegister(t *testing.T) {
	frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, RegisterInput{
		Username: "brewer",
		Email:    "brewer@example.com",
		Password: "Secret123!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("Secret123!", stored.PasswordHash))
	assert.NotEmpty(t, stored.EmailVerificationToken)

	// Duplicates are rejected with a client-safe conflict.
	_, err = service.Register(ctx, RegisterInput{
		Username: "other",
		Email:    "brewer@example.com",
		Password: "Secret123!",
	})
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

/*
TestVerifyEmail verifies token-based confirmation and its expiry handling.
*/
func TestVerifyEmail(t *testing.T) {
	advance := frozenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	service, users, _ := newTestService(t)
	user := seedUser(t, users, "brewer@example.com", "brewer", "Secret123!")
	ctx := context.Background()

	// Seed a verification token the way Register does.
	rawToken, err := sec.GenerateSecureToken(VerificationTokenLength)
	require.NoError(t, err)
	expiresAt := timeNow().Add(VerificationTokenTTL)
	require.NoError(t, users.SetVerificationToken(ctx, user.ID, sec.HashToken(rawToken), expiresAt))

	// 1. Bogus token fails.
	err = service.VerifyEmail(ctx, "bogus")
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))

	// 2. Valid token verifies and is consumed.
	require.NoError(t, service.VerifyEmail(ctx, rawToken))

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmailVerified)
	assert.Empty(t, stored.EmailVerificationToken)

	// 3. Replaying the consumed token fails.
	advance(time.Minute)
	err = service.VerifyEmail(ctx, rawToken)
	assert.True(t, apperr.HasCode(err, CodeTokenExpiredInvalid))
}

// # Storage Failures

/*
TestLogin_StorageFailureIsNotAnAuthVerdict verifies that a connectivity error
during identifier lookup surfaces as-is instead of being disguised as a bad
credential.
*/
func TestLogin_StorageFailureIsNotAnAuthVerdict(t *testing.T) {
	service, users, _ := newTestService(t)
	seedUser(t, users, "grower@example.com", "grower", "Secret123!")

	users.failFinds = errors.New("connection refused")

	_, err := service.Login(context.Background(), LoginInput{
		Login:    "grower@example.com",
		Password: "Secret123!",
	})
	require.Error(t, err)
	assert.False(t, apperr.HasCode(err, CodeInvalidCredentials))
	assert.ErrorContains(t, err, "connection refused")
}

/*
TestVerifySession_StorageFailureSurfaced verifies a session lookup outage is
propagated rather than reported as an expired token, and that the session row
is left untouched.
*/
func TestVerifySession_StorageFailureSurfaced(t *testing.T) {
	service, users, sessions := newTestService(t)
	seedUser(t, users, "grower@example.com", "grower", "Secret123!")

	login, err := service.Login(context.Background(), LoginInput{
		Login:    "grower@example.com",
		Password: "Secret123!",
	})
	require.NoError(t, err)

	sessions.failFind = errors.New("connection refused")

	_, err = service.VerifySession(context.Background(), login.Token)
	require.Error(t, err)
	assert.False(t, apperr.HasCode(err, CodeTokenExpiredInvalid))

	sessions.failFind = nil
	assert.Equal(t, 1, sessions.count())
}

/*
TestRegister_VerificationTokenFailureLogged verifies registration still
succeeds when the verification token cannot be stored, and that the failure
is visible to the operator in the log stream.
*/
func TestRegister_VerificationTokenFailureLogged(t *testing.T) {
	users := newMemUserRepo()
	sessions := newMemSessionRepo()

	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuffer, nil))
	service := NewService(users, sessions, allowAllThrottle{}, logger, "BatchTrack", true)

	users.failSetVerification = errors.New("db down")

	user, err := service.Register(context.Background(), RegisterInput{
		Username: "grower",
		Email:    "grower@example.com",
		Password: "Secret123!",
	})
	require.NoError(t, err)

	stored, err := users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.EmailVerificationToken)

	assert.Contains(t, logBuffer.String(), "verification_token_not_issued")
	assert.NotContains(t, logBuffer.String(), `"verification_token_issued"`)
}
