package audit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/audit"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

// noon UTC keeps the off-hours signal out of tests that don't want it.
var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRiskScore(t *testing.T) {
	t.Run("benign read scores zero", func(t *testing.T) {
		req := domain.RequestContext{Method: "GET", Path: "/api/products", UserAgent: "Mozilla/5.0"}
		resp := &domain.ResponseContext{Status: 200}
		score, flags := audit.RiskScore(noon, req, resp)
		require.Zero(t, score)
		require.Empty(t, flags)
	})

	t.Run("signals accumulate", func(t *testing.T) {
		req := domain.RequestContext{Method: "DELETE", Path: "/api/admin/users/5", UserAgent: "curl/8.0"}
		resp := &domain.ResponseContext{Status: 500}
		score, flags := audit.RiskScore(noon, req, resp)

		// 30 server error + 20 admin path + 15 destructive + 15 agent
		require.Equal(t, 80, score)
		require.Contains(t, flags, "server_error")
		require.Contains(t, flags, "admin_path")
		require.Contains(t, flags, "destructive_method")
		require.Contains(t, flags, "suspicious_user_agent")
	})

	t.Run("score is capped at 100", func(t *testing.T) {
		req := domain.RequestContext{Method: "DELETE", Path: "/api/admin/db", UserAgent: "sqlmap/1.7"}
		resp := &domain.ResponseContext{Status: 500, Blocked: true}
		midnight := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
		score, _ := audit.RiskScore(midnight, req, resp)
		require.Equal(t, 100, score)
	})

	t.Run("off hours flagged from the timestamp only", func(t *testing.T) {
		req := domain.RequestContext{Method: "GET", Path: "/api/products"}
		resp := &domain.ResponseContext{Status: 200}

		score, flags := audit.RiskScore(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), req, resp)
		require.Equal(t, 10, score)
		require.Contains(t, flags, "off_hours")
	})

	t.Run("off hours is judged in UTC regardless of zone", func(t *testing.T) {
		req := domain.RequestContext{Method: "GET", Path: "/api/products"}
		resp := &domain.ResponseContext{Status: 200}

		// 23:30 local in UTC+9 is mid-afternoon in UTC.
		tokyo := time.Date(2026, 3, 10, 23, 30, 0, 0, time.FixedZone("UTC+9", 9*3600))
		_, flags := audit.RiskScore(tokyo, req, resp)
		require.NotContains(t, flags, "off_hours")
	})

	t.Run("recomputation is deterministic", func(t *testing.T) {
		req := domain.RequestContext{Method: "PUT", Path: "/api/payments/charge", UserAgent: "python-requests/2.31"}
		resp := &domain.ResponseContext{Status: 403}

		first, firstFlags := audit.RiskScore(noon, req, resp)
		second, secondFlags := audit.RiskScore(noon, req, resp)
		require.Equal(t, first, second)
		require.Equal(t, firstFlags, secondFlags)
	})
}
