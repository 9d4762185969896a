package httpapi

import (
	"net/http"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// HandleLogout revokes the presented access token for its remaining lifetime
// and discards the session's CSRF token. Runs behind Authenticate, so the
// token is known-good here.
func (rt *Router) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := rt.Tokens.Blacklist(ctx, bearerToken(r), "logout"); err != nil {
		slogx.FromContext(ctx).Error("logout revocation failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeAuthServiceError, "could not revoke token")
		return
	}

	if c, err := r.Cookie(rt.CSRF.Cookie()); err == nil {
		rt.CSRF.Revoke(ctx, c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     rt.CSRF.Cookie(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	slogx.FromContext(ctx).Info("logged out", "user_id", httpx.UserIDFromContext(ctx))
	w.WriteHeader(http.StatusNoContent)
}
