package httpapi

import (
	"net/http"
	"strings"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
)

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	scheme, rest, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

// Authenticate verifies the bearer token and stores the caller's identity in
// the request context. Every failure reason surfaces as its own stable code
// so clients can distinguish an expired token from a revoked one.
func (rt *Router) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := rt.Tokens.VerifyAccessToken(r.Context(), bearerToken(r))
		if err != nil {
			WriteTokenError(w, err)
			return
		}

		ctx := httpx.WithAuth(r.Context(), claims.UserID, claims.Role, claims.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
