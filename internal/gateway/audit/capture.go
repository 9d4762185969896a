package audit

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
)

// CaptureConfig bounds what the pipeline snapshots from each exchange.
type CaptureConfig struct {
	// MaxBodySize caps captured request and response bodies; longer bodies
	// are truncated with a marker. <= 0 disables body capture.
	MaxBodySize int
	// ExcludePaths skips auditing entirely for matching path prefixes
	// (health probes, metrics scrapes).
	ExcludePaths []string
	// ExcludeMethods skips auditing for these HTTP methods (e.g. OPTIONS).
	ExcludeMethods []string
	// ExcludeHeaders drops these headers from the snapshot outright, on
	// top of the redactor's field-name matching.
	ExcludeHeaders []string
}

// DefaultCaptureConfig mirrors the usual deployment: probes and preflight
// excluded, bodies capped at 4KB.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		MaxBodySize:    4 * 1024,
		ExcludePaths:   []string{"/healthz", "/metrics", "/favicon.ico"},
		ExcludeMethods: []string{http.MethodOptions, http.MethodHead},
		ExcludeHeaders: []string{"Authorization", "Cookie", "Set-Cookie", "X-Csrf-Token"},
	}
}

// Excluded reports whether the request should bypass auditing entirely.
func (c CaptureConfig) Excluded(r *http.Request) bool {
	for _, m := range c.ExcludeMethods {
		if strings.EqualFold(r.Method, m) {
			return true
		}
	}
	for _, p := range c.ExcludePaths {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

func (c CaptureConfig) excludedHeader(name string) bool {
	for _, h := range c.ExcludeHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

const truncationMarker = "...[TRUNCATED]"

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + truncationMarker
}

// CaptureRequest builds the sanitized request snapshot. The body is read up
// to the cap and restored so downstream handlers see it untouched.
func CaptureRequest(r *http.Request, cfg CaptureConfig, red *Redactor) domain.RequestContext {
	rc := domain.RequestContext{
		Method:    r.Method,
		Path:      r.URL.Path,
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
		UserID:    httpx.UserIDFromContext(r.Context()),
		Role:      httpx.RoleFromContext(r.Context()),
	}

	if query := r.URL.Query(); len(query) > 0 {
		rc.Query = make(map[string]string, len(query))
		for k, vs := range query {
			if len(vs) > 0 {
				rc.Query[k] = red.RedactValue(k, vs[0])
			}
		}
	}

	rc.Headers = make(map[string]string, len(r.Header))
	for name, vs := range r.Header {
		if cfg.excludedHeader(name) || len(vs) == 0 {
			continue
		}
		rc.Headers[name] = red.RedactValue(name, vs[0])
	}

	if cfg.MaxBodySize > 0 && r.Body != nil && r.Body != http.NoBody {
		peek, err := io.ReadAll(io.LimitReader(r.Body, int64(cfg.MaxBodySize)+1))
		if err == nil {
			rest := r.Body
			r.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(peek), rest), rest}

			rc.Body = truncate(red.RedactBody(peek), cfg.MaxBodySize)
		}
	}

	return rc
}

// CaptureResponse builds the sanitized response snapshot from the buffered
// interceptor state.
func CaptureResponse(status int, body []byte, blocked bool, started time.Time, cfg CaptureConfig, red *Redactor) *domain.ResponseContext {
	resp := &domain.ResponseContext{
		Status:   status,
		Duration: time.Since(started),
		Blocked:  blocked,
	}
	if cfg.MaxBodySize > 0 && len(body) > 0 && !blocked {
		resp.Body = truncate(red.RedactBody(body), cfg.MaxBodySize)
	}
	return resp
}
