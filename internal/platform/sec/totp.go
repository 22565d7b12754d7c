// Copyright (c) 2026 BatchTrack. All rights reserved.

package sec

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// # TOTP Parameters

const (
	// totpPeriod is the TOTP time-step in seconds (RFC 6238 default).
	totpPeriod = 30

	// totpSkew is the number of time-steps of clock drift tolerated in
	// either direction when validating a code.
	totpSkew = 1

	// totpSecretSize is the byte length of the shared TOTP seed.
	totpSecretSize = 20
)

// TOTPKey is a freshly provisioned TOTP enrollment.
type TOTPKey struct {
	// Secret is the base32-encoded shared seed, shown once to the user.
	Secret string

	// ProvisioningURI is the otpauth:// URL rendered as a QR code for
	// import into an authenticator app.
	ProvisioningURI string
}

/*
NewTOTPKey generates a fresh random TOTP seed for the given account.

Parameters:
  - issuer: string (display name of this installation)
  - accountName: string (email or username shown in the authenticator app)

Returns:
  - *TOTPKey: Secret plus provisioning URI
  - error: entropy or encoding failures
*/
func NewTOTPKey(issuer, accountName string) (*TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("sec: failed to generate totp key: %w", err)
	}

	return &TOTPKey{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// ValidateTOTP reports whether code is a valid time-based one-time code for
// the stored secret at the given instant, allowing one time-step of drift in
// either direction.
func ValidateTOTP(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// # Backup Codes

// backupCodeAlphabet deliberately omits 0/O and 1/I to keep hand-typed
// recovery codes unambiguous.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

/*
GenerateBackupCodes produces count unique single-use recovery codes.

Description: Codes are uppercase alphanumeric strings of the given length,
generated from crypto/rand. Callers compare them case-insensitively.

Parameters:
  - count: int
  - length: int (characters per code)

Returns:
  - []string: exactly count unique codes
  - error: entropy failures
*/
func GenerateBackupCodes(count, length int) ([]string, error) {
	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	for len(codes) < count {
		code, err := randomBackupCode(length)
		if err != nil {
			return nil, err
		}
		// Collisions are astronomically unlikely but single-use semantics
		// require every code in the batch to be distinct.
		if _, duplicate := seen[code]; duplicate {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

// randomBackupCode builds one code by rejection-free modulo-safe sampling.
func randomBackupCode(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}

	var builder strings.Builder
	builder.Grow(length)
	for _, b := range buffer {
		// 32-character alphabet divides 256 evenly, so masking introduces no bias.
		builder.WriteByte(backupCodeAlphabet[int(b)%len(backupCodeAlphabet)])
	}
	return builder.String(), nil
}
