package audit

import (
	"context"
	"log/slog"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

// Sink receives flushed batches of audit events. Implementations must
// tolerate being called from the pipeline's flush goroutine; a failed write
// is logged and dropped, never retried into the request path.
type Sink interface {
	Write(ctx context.Context, events []domain.AuditEvent) error
	Close() error
}

// SlogSink emits each event as one structured log line. High-risk events log
// at warning to stand out in aggregation.
type SlogSink struct {
	Logger *slog.Logger
	// WarnAt is the risk score at which events escalate to warning level.
	WarnAt int
}

func (s *SlogSink) warnAt() int {
	if s.WarnAt > 0 {
		return s.WarnAt
	}
	return 50
}

func (s *SlogSink) Write(ctx context.Context, events []domain.AuditEvent) error {
	for _, ev := range events {
		attrs := []any{
			"request_id", ev.RequestID,
			"method", ev.Request.Method,
			"path", ev.Request.Path,
			"ip", ev.Request.IPAddress,
			"risk_score", ev.RiskScore,
			"classification", ev.Classification,
		}
		if ev.Request.UserID != "" {
			attrs = append(attrs, "user_id", ev.Request.UserID)
		}
		if ev.Response != nil {
			attrs = append(attrs, "status", ev.Response.Status, "duration_ms", ev.Response.Duration.Milliseconds())
			if ev.Response.Blocked {
				attrs = append(attrs, "blocked", true)
			}
		}
		if len(ev.SecurityFlags) > 0 {
			attrs = append(attrs, "flags", ev.SecurityFlags)
		}

		if ev.RiskScore >= s.warnAt() {
			s.Logger.WarnContext(ctx, "audit", attrs...)
		} else {
			s.Logger.InfoContext(ctx, "audit", attrs...)
		}
	}
	return nil
}

func (s *SlogSink) Close() error { return nil }
