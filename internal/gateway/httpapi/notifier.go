package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// Notifier receives out-of-band alerts for server-side failures. Deployments
// plug in a pager or chat webhook; the default just logs loudly.
type Notifier interface {
	NotifyServerError(ctx context.Context, requestID, method, path string, status int)
}

// SlogNotifier is the default Notifier.
type SlogNotifier struct {
	Logger *slog.Logger
}

func (n *SlogNotifier) NotifyServerError(ctx context.Context, requestID, method, path string, status int) {
	n.Logger.Error("server error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"status", status,
	)
}

// notifyMiddleware watches response statuses and fires the notifier for
// 5xx responses without delaying the reply.
func (rt *Router) notifyMiddleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			if sw.status >= http.StatusInternalServerError {
				reqID := slogx.RequestIDFromContext(r.Context())
				go rt.Notifier.NotifyServerError(context.WithoutCancel(r.Context()),
					reqID, r.Method, r.URL.Path, sw.status)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
