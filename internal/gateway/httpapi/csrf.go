package httpapi

import (
	"errors"
	"net/http"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/csrf"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// csrfHeader is the request header a client echoes the cookie value in.
const csrfHeader = "X-CSRF-Token"

type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// HandleCSRF issues a fresh anti-forgery token bound to the caller's
// session and address, delivered both as a cookie and in the body.
func (rt *Router) HandleCSRF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tok, err := rt.CSRF.Issue(ctx,
		httpx.UserIDFromContext(ctx),
		httpx.SessionIDFromContext(ctx),
		httpx.ClientIP(r),
	)
	if err != nil {
		slogx.FromContext(ctx).Error("csrf issue failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeAuthServiceError, "could not issue token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     rt.CSRF.Cookie(),
		Value:    tok,
		Path:     "/",
		MaxAge:   int(rt.CSRF.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	httpx.WriteJSON(w, http.StatusOK, csrfResponse{CSRFToken: tok})
}

// VerifyCSRF guards state-changing methods: the token must arrive in the
// header and match a live record for this caller. Safe methods pass through.
func (rt *Router) VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		err := rt.CSRF.Validate(ctx,
			r.Header.Get(csrfHeader),
			httpx.UserIDFromContext(ctx),
			httpx.SessionIDFromContext(ctx),
			httpx.ClientIP(r),
		)
		if err != nil {
			obs.Denial("csrf")
			switch {
			case errors.Is(err, csrf.ErrMissing):
				httpx.WriteError(w, http.StatusForbidden, httpx.CodeInvalidCSRF, "csrf token is required")
			case errors.Is(err, csrf.ErrInvalid), errors.Is(err, csrf.ErrOwnerMismatch), errors.Is(err, csrf.ErrIPMismatch):
				httpx.WriteError(w, http.StatusForbidden, httpx.CodeInvalidCSRF, "csrf token is invalid")
			default:
				slogx.FromContext(ctx).Error("csrf validation failed", "error", err)
				httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeAuthServiceError, "could not validate token")
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}
