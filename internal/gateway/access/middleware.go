package access

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// maxStoreIDBodyPeek caps how much of a request body the store-id extractor
// will buffer while looking for a storeId field.
const maxStoreIDBodyPeek = 64 * 1024

// StoreIDFromRequest resolves the store id from path, body, then query, in
// that precedence. The body is restored so downstream handlers can re-read it.
func StoreIDFromRequest(r *http.Request) string {
	if id := r.PathValue("storeId"); id != "" {
		return id
	}

	if r.Body != nil && r.Body != http.NoBody {
		peek, err := io.ReadAll(io.LimitReader(r.Body, maxStoreIDBodyPeek))
		if err == nil {
			rest := r.Body
			r.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(peek), rest), rest}

			var body struct {
				StoreID string `json:"storeId"`
			}
			if json.Unmarshal(peek, &body) == nil && body.StoreID != "" {
				return body.StoreID
			}
		}
	}

	return r.URL.Query().Get("storeId")
}

// RequirePermission is a middleware factory enforcing a single permission
// against the caller's resolved grant. Unauthenticated callers get 401; an
// insufficient grant gets 403 with the required permission and current role
// so clients can explain the denial.
func (c *Controller) RequirePermission(perm domain.Permission) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := httpx.UserIDFromContext(ctx)
			if userID == "" {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeMissingToken, "authentication required")
				return
			}
			role := domain.Role(httpx.RoleFromContext(ctx))

			grant, err := c.ResolvePermissions(ctx, userID, role, StoreIDFromRequest(r))
			if err != nil {
				slogx.FromContext(ctx).Error("permission resolution failed", "error", err, "user_id", userID)
				httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeAuthServiceError, "authorization service error")
				return
			}

			if !grant.Has(perm) {
				httpx.WriteErrorDetails(w, http.StatusForbidden, httpx.CodeInsufficientPerms, "insufficient permissions", map[string]any{
					"required":    string(perm),
					"currentRole": string(role),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireStoreAccess enforces that the caller has an explicit relation to
// the store named by the request. 400 when no store id can be resolved.
func (c *Controller) RequireStoreAccess(op Operation) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := httpx.UserIDFromContext(ctx)
			if userID == "" {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeMissingToken, "authentication required")
				return
			}
			role := domain.Role(httpx.RoleFromContext(ctx))

			storeID := StoreIDFromRequest(r)
			if storeID == "" {
				httpx.WriteError(w, http.StatusBadRequest, httpx.CodeMissingStoreID, "store id is required")
				return
			}

			ok, err := c.HasStoreRelation(ctx, userID, role, storeID, op)
			if err != nil {
				slogx.FromContext(ctx).Error("store access resolution failed", "error", err, "user_id", userID, "store_id", storeID)
				httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeAuthServiceError, "authorization service error")
				return
			}
			if !ok {
				httpx.WriteErrorDetails(w, http.StatusForbidden, httpx.CodeNoStoreAccess, "no access to this store", map[string]any{
					"storeId":   storeID,
					"operation": string(op),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrManager guards user-record routes: a caller may always act on
// their own record; platform OWNER and ADMIN may act on any record. The
// target user id is read from the named path parameter.
func RequireSelfOrManager(param string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := httpx.UserIDFromContext(ctx)
			if userID == "" {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeMissingToken, "authentication required")
				return
			}

			target := r.PathValue(param)
			role := domain.Role(httpx.RoleFromContext(ctx))
			if target == userID || role == domain.RoleOwner || role == domain.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			httpx.WriteErrorDetails(w, http.StatusForbidden, httpx.CodeInsufficientPerms, "cannot access another user's record", map[string]any{
				"currentRole": string(role),
			})
		})
	}
}
