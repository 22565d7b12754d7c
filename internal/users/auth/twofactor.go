// Copyright (c) 2026 BatchTrack. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/batchtrack/batchtrack/internal/platform/apperr"
	"github.com/batchtrack/batchtrack/internal/platform/sec"
)

// # Two-Factor Authentication
//
// Enrollment is two-phase: Setup2FA stores a pending secret, and only a
// successful Verify2FASetup flips twoFactorEnabled. A stored secret on its
// own never grants 2FA-enabled status.

/*
Setup2FA begins two-factor enrollment for a user.

Description: Generates a fresh TOTP seed and stores it as pending. Calling
again before confirmation replaces the pending seed. Enrollment cannot be
restarted while 2FA is already enabled; it must be disabled first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *sec.TOTPKey: Secret and provisioning URI for the authenticator app
  - err: Conflict if already enabled, or storage failures
*/
func (service *Service) Setup2FA(context context.Context, userID string) (*sec.TOTPKey, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return nil, apperr.Conflict("Two-factor authentication is already enabled")
	}

	key, err := sec.NewTOTPKey(service.totpIssuer, user.Email)
	if err != nil {
		return nil, fmt.Errorf("auth_service_totp_generate_failed: %w", err)
	}

	if err := service.userRepository.SaveTwoFactorSecret(context, userID, key.Secret); err != nil {
		return nil, fmt.Errorf("auth_service_totp_save_failed: %w", err)
	}

	service.logger.Info("2fa_setup_started", slog.String("user_id", userID))

	return key, nil
}

/*
Verify2FASetup confirms two-factor enrollment with a live code.

Description: Validates the code against the pending secret (±1 time step).
On success, enables 2FA and issues the single-use backup codes. On failure,
state is unchanged and the pending secret remains usable for a retry.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - []string: Freshly generated backup codes (shown to the user exactly once)
  - err: InvalidTwoFactorCode or storage failures
*/
func (service *Service) Verify2FASetup(context context.Context, userID, code string) ([]string, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorSecret == "" {
		return nil, apperr.Unprocessable("Two-factor enrollment has not been started")
	}

	if !sec.ValidateTOTP(code, user.TwoFactorSecret, timeNow()) {
		return nil, ErrInvalidTwoFactorCode()
	}

	backupCodes, err := sec.GenerateBackupCodes(BackupCodeCount, BackupCodeLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_backup_codes_failed: %w", err)
	}

	if err := service.userRepository.EnableTwoFactor(context, userID, backupCodes); err != nil {
		return nil, fmt.Errorf("auth_service_enable_2fa_failed: %w", err)
	}

	service.logger.Info("2fa_enabled", slog.String("user_id", userID))

	return backupCodes, nil
}

/*
Verify2FA checks a second-factor code at login time.

Description: First tries the code as a TOTP against the stored secret. If
that fails, tries it (case-insensitively) as a backup code; a matching
backup code is consumed atomically so it can never be used twice.

Parameters:
  - context: context.Context
  - user: *User (already loaded by the caller)
  - code: string

Returns:
  - bool: true if either check succeeded
  - err: Storage failures from backup-code consumption
*/
func (service *Service) Verify2FA(context context.Context, user *User, code string) (bool, error) {
	if sec.ValidateTOTP(code, user.TwoFactorSecret, timeNow()) {
		return true, nil
	}

	consumed, err := service.userRepository.ConsumeBackupCode(context, user.ID, normalizeBackupCode(code))
	if err != nil {
		return false, fmt.Errorf("auth_service_consume_backup_code_failed: %w", err)
	}

	if consumed {
		service.logger.Info("backup_code_used", slog.String("user_id", user.ID))
	}

	return consumed, nil
}

/*
Disable2FA turns off two-factor authentication.

Description: Requires a valid current code (TOTP or backup) as proof of
possession; on success clears the secret and all backup codes.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - err: InvalidTwoFactorCode or storage failures
*/
func (service *Service) Disable2FA(context context.Context, userID, code string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !user.TwoFactorEnabled {
		return apperr.Unprocessable("Two-factor authentication is not enabled")
	}

	ok, err := service.Verify2FA(context, user, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTwoFactorCode()
	}

	if err := service.userRepository.DisableTwoFactor(context, userID); err != nil {
		return fmt.Errorf("auth_service_disable_2fa_failed: %w", err)
	}

	service.logger.Info("2fa_disabled", slog.String("user_id", userID))

	return nil
}
