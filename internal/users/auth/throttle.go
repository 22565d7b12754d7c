// Copyright (c) 2026 BatchTrack. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/batchtrack/batchtrack/internal/platform/constants"
)

// # Login Throttling

// Fixed-window throttle parameters. The window is deliberately coarser than
// the per-account lockout: it caps password guessing across many accounts
// from a single address.
const (
	throttleWindow      = 1 * time.Minute
	throttleMaxAttempts = 20
)

// LoginThrottle limits the rate of login attempts from a single source.
type LoginThrottle interface {

	/*
		Allow records a login attempt for the given source and reports whether
		it is still within the allowed rate.

		Parameters:
		  - context: context.Context
		  - source: string (typically the client IP)

		Returns:
		  - bool: true if the attempt may proceed
		  - error: Backend failures
	*/
	Allow(context context.Context, source string) (bool, error)
}

// RedisLoginThrottle implements LoginThrottle with a fixed-window counter.
type RedisLoginThrottle struct {
	client *redis.Client
	logger *slog.Logger
}

// NewLoginThrottle creates a new Redis-backed LoginThrottle.
func NewLoginThrottle(client *redis.Client, logger *slog.Logger) *RedisLoginThrottle {
	return &RedisLoginThrottle{client: client, logger: logger}
}

/*
Allow increments the attempt counter for the source and checks the window cap.

Description: INCR followed by EXPIRE on first increment. The throttle fails
open: if Redis is unreachable, logins proceed and the outage is logged. The
per-account lockout still protects individual credentials.

Parameters:
  - context: context.Context
  - source: string

Returns:
  - bool: true if the attempt may proceed
  - error: Always nil in fail-open mode; reserved for stricter implementations
*/
func (throttle *RedisLoginThrottle) Allow(context context.Context, source string) (bool, error) {
	key := fmt.Sprintf("%s%s", constants.RedisPrefixLoginThrottle, source)

	count, err := throttle.client.Incr(context, key).Result()
	if err != nil {
		throttle.logger.Warn("login_throttle_unavailable", slog.Any("error", err))
		return true, nil
	}

	// First attempt in this window starts the expiry clock.
	if count == 1 {
		if err := throttle.client.Expire(context, key, throttleWindow).Err(); err != nil {
			throttle.logger.Warn("login_throttle_expire_failed", slog.Any("error", err))
		}
	}

	return count <= throttleMaxAttempts, nil
}
