package httpapi

import (
	"errors"
	"net/http"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/token"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
)

// WriteTokenError maps a verification failure onto the gateway's stable
// response codes. This is the single place the token taxonomy meets HTTP.
func WriteTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrMissing):
		obs.AuthFailure("missing")
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeMissingToken, "authentication required")
	case errors.Is(err, token.ErrExpired):
		obs.AuthFailure("expired")
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeTokenExpired, "token has expired")
	case errors.Is(err, token.ErrRevoked):
		obs.AuthFailure("revoked")
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeTokenRevoked, "token has been revoked")
	case errors.Is(err, token.ErrNotYetValid):
		obs.AuthFailure("not_yet_valid")
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeTokenNotActive, "token is not active yet")
	case errors.Is(err, token.ErrRoleChanged):
		obs.AuthFailure("role_changed")
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeRoleChanged, "role has changed, please sign in again")
	case errors.Is(err, token.ErrSessionStale):
		obs.AuthFailure("session_stale")
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeInvalidSession, "session is no longer valid")
	case errors.Is(err, token.ErrUnavailable):
		obs.AuthFailure("store_unavailable")
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeAuthServiceError, "authentication service error")
	default:
		obs.AuthFailure("malformed")
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeInvalidToken, "token is invalid")
	}
}
