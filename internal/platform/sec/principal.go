// Copyright (c) 2026 BatchTrack. All rights reserved.

package sec

// Principal identifies the authenticated caller of a request.
//
// It is resolved from an opaque session token by the auth service and
// injected into the request context by [middleware.Authenticate]. Handlers
// must treat it as read-only.
type Principal struct {
	// UserID is the owning account's ID.
	UserID string

	// Username is carried for log enrichment only.
	Username string

	// SessionID identifies the session that produced this principal, so a
	// handler can distinguish "this login" from the user's other sessions.
	SessionID string
}
