package httpx

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error codes returned to callers. These are stable API:
// clients switch on them, never on message text.
const (
	CodeMissingToken      = "MISSING_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenRevoked      = "TOKEN_REVOKED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeTokenNotActive    = "TOKEN_NOT_ACTIVE"
	CodeRoleChanged       = "ROLE_CHANGED"
	CodeInvalidSession    = "INVALID_SESSION"
	CodeInsufficientPerms = "INSUFFICIENT_PERMISSIONS"
	CodeNoStoreAccess     = "NO_STORE_ACCESS"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInvalidCSRF       = "INVALID_CSRF"
	CodeMissingStoreID    = "MISSING_STORE_ID"
	CodeAuthServiceError  = "AUTH_SERVICE_ERROR"
	CodeResponseBlocked   = "RESPONSE_BLOCKED_BY_POLICY"
	CodeSuspiciousRequest = "SUSPICIOUS_REQUEST"
	CodeIPBlocked         = "IP_BLOCKED"
	CodeBruteForceLockout = "BRUTE_FORCE_LOCKOUT"
)

// ErrorBody is the JSON envelope for every denial the gateway produces.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code. Sensitive
// responses must never be cached, so Cache-Control is always set.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the structured denial envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, map[string]ErrorBody{"error": {Code: code, Message: message}})
}

// WriteErrorDetails is WriteError with extra machine-readable fields,
// e.g. {"required": "product:create", "currentRole": "VENDOR"}.
func WriteErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	WriteJSON(w, status, map[string]ErrorBody{"error": {Code: code, Message: message, Details: details}})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
