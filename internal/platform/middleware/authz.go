// Copyright (c) 2026 BatchTrack. All rights reserved.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/batchtrack/batchtrack/internal/platform/apperr"
	"github.com/batchtrack/batchtrack/internal/platform/constants"
	"github.com/batchtrack/batchtrack/internal/platform/ctxutil"
	"github.com/batchtrack/batchtrack/internal/platform/respond"
	"github.com/batchtrack/batchtrack/internal/platform/sec"
)

// SessionVerifier defines the interface needed to resolve session tokens in middleware.
//
// # Why an interface?
//
// Defining SessionVerifier here decouples the middleware from the `auth` service
// implementation, allowing us to easily inject mocks during unit testing.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*sec.Principal, error)
}

// Authenticate extracts and verifies the opaque session token for a request.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header, then the session cookie.
//  2. If neither is present, the request proceeds as anonymous.
//  3. If present, resolve the token to a live session via [SessionVerifier].
//  4. Inject [*sec.Principal] into the request context for downstream use.
//
// # Parameters
//   - verifier: The SessionVerifier instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			token, malformed := extractToken(request)
			if malformed {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 2. Anonymous Access ───────────────────────────────────────────
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Session Verification ───────────────────────────────────────
			principal, err := verifier.VerifySession(request.Context(), token)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired session"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.Principal] exists in context.
//  2. If missing, abort with HTTP 401 Unauthorized.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal := ctxutil.GetPrincipal(request.Context())
		if principal == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// extractToken pulls the session token from the Authorization header or,
// failing that, from the session cookie. Browser clients use the cookie;
// API clients send the bearer header.
//
// The second return value reports a present but malformed Authorization header.
func extractToken(request *http.Request) (string, bool) {
	authHeader := request.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", true
		}
		return parts[1], false
	}

	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, false
}
