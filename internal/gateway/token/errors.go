package token

import "errors"

// Verification failure reasons. Tagged sentinels instead of distinct error
// types: the HTTP boundary maps them to stable response codes in a single
// exhaustive switch.
var (
	ErrMissing      = errors.New("token: missing")
	ErrExpired      = errors.New("token: expired")
	ErrRevoked      = errors.New("token: revoked")
	ErrMalformed    = errors.New("token: malformed")
	ErrNotYetValid  = errors.New("token: not yet valid")
	ErrRoleChanged  = errors.New("token: role changed since issue")
	ErrSessionStale = errors.New("token: session no longer valid")

	// ErrUnavailable means the revocation store could not be reached at all.
	// Authoritative path: callers deny rather than permit.
	ErrUnavailable = errors.New("token: revocation store unavailable")
)
