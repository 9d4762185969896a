package audit

import (
	"net/http"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// Auditor assembles the per-request audit flow: snapshot the request, buffer
// the response for the DLP check, then score, classify and emit exactly one
// event per exchange.
type Auditor struct {
	Pipeline *Pipeline
	Capture  CaptureConfig
	Redactor *Redactor
	Scanner  Scanner
}

// policyBlockedBody replaces any response the DLP scanner refuses to flush.
func policyBlockedBody(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusForbidden, httpx.CodeResponseBlocked,
		"response withheld by data protection policy")
}

// Middleware wraps the whole handler chain. It must sit outermost so the
// response interceptor sees everything the inner chain writes.
func (a *Auditor) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.Capture.Excluded(r) {
				next.ServeHTTP(w, r)
				return
			}

			started := time.Now()
			reqCtx := CaptureRequest(r, a.Capture, a.Redactor)

			// Authentication runs deeper in the chain; the holder carries
			// the caller's identity back out to the event.
			caller := &httpx.Identity{}
			r = r.WithContext(httpx.WithIdentity(r.Context(), caller))

			ic := newInterceptor(w)
			next.ServeHTTP(ic, r)

			// DLP runs synchronously before a single byte is flushed.
			body := ic.buf.Bytes()
			leaks, bodyClass := a.Scanner.Scan(body)
			blocked := len(leaks) > 0

			if blocked {
				slogx.FromContext(r.Context()).Warn("response blocked by policy",
					"path", r.URL.Path,
					"patterns", leaks,
					"status", ic.status,
				)
				// Handler-set headers can leak as much as the body; drop
				// them all before the substitute payload.
				h := w.Header()
				for k := range h {
					delete(h, k)
				}
				obs.Denial("dlp")
				policyBlockedBody(w)
			} else {
				if ic.status != http.StatusOK {
					w.WriteHeader(ic.status)
				}
				if len(body) > 0 {
					_, _ = w.Write(body)
				}
			}

			if reqCtx.UserID == "" {
				reqCtx.UserID = caller.UserID
				reqCtx.Role = caller.Role
			}

			respCtx := CaptureResponse(ic.status, body, blocked, started, a.Capture, a.Redactor)

			ts := time.Now()
			score, flags := RiskScore(ts, reqCtx, respCtx)
			flags = append(flags, leaks...)

			ev := domain.AuditEvent{
				RequestID:      slogx.RequestIDFromContext(r.Context()),
				Timestamp:      ts,
				Request:        reqCtx,
				Response:       respCtx,
				RiskScore:      score,
				SecurityFlags:  flags,
				Classification: ClassifyPath(r.URL.Path).Max(bodyClass),
				Compliance:     Compliance(r.URL.Path, reqCtx.Body, respCtx.Body),
			}
			a.Pipeline.Emit(ev)
		})
	}
}
