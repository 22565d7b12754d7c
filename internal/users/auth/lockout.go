// Copyright (c) 2026 BatchTrack. All rights reserved.

package auth

import (
	"math"
	"time"
)

// # Brute-force Lockout

// Locked reports whether the account is currently locked out.
//
// A lock expires passively: once LockedUntil has passed, the account is
// considered unlocked even though the timestamp is still on the row. The
// counter is only reset by a successful login.
func Locked(user *User, now time.Time) bool {
	return user.LockedUntil != nil && now.Before(*user.LockedUntil)
}

// lockoutMinutesLeft returns the remaining lock time in whole minutes,
// rounded up so the client never retries early.
func lockoutMinutesLeft(lockedUntil *time.Time, now time.Time) int {
	if lockedUntil == nil {
		return 0
	}

	remaining := lockedUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}

	return int(math.Ceil(remaining.Minutes()))
}
