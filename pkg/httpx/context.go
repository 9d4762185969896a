package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyUserRole  ctxKey = "user_role"
	CtxKeySessionID ctxKey = "session_id"
	CtxKeyClaims    ctxKey = "claims"
	CtxKeyGrant     ctxKey = "grant"
	CtxKeyIdentity  ctxKey = "identity"
)

// Identity is a per-request identity record shared between middleware
// layers. Context values only flow inward: a wrapper running before
// authentication never sees what Authenticate later attaches through
// r.WithContext. A layer that needs the caller's identity after the inner
// chain returns seeds a holder with WithIdentity; WithAuth fills it.
type Identity struct {
	UserID    string
	Role      string
	SessionID string
}

// WithIdentity seeds an identity holder for deeper layers to fill.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, CtxKeyIdentity, id)
}

// IdentityFromContext returns the seeded identity holder, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(CtxKeyIdentity).(*Identity)
	return id
}

// WithAuth stores the authenticated caller's identity in the context and
// fills the seeded identity holder, if any.
func WithAuth(ctx context.Context, userID, role, sessionID string) context.Context {
	if id := IdentityFromContext(ctx); id != nil {
		id.UserID = userID
		id.Role = role
		id.SessionID = sessionID
	}
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	ctx = context.WithValue(ctx, CtxKeyUserRole, role)
	ctx = context.WithValue(ctx, CtxKeySessionID, sessionID)
	return ctx
}

// UserIDFromContext returns the authenticated user id, or empty.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// RoleFromContext returns the authenticated user's role claim, or empty.
func RoleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserRole).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext returns the tenant session id, or empty.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}
