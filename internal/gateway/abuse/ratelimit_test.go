package abuse_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/abuse"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func getFrom(t *testing.T, h http.Handler, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	t.Run("denies past the burst with headers and body", func(t *testing.T) {
		cfg := abuse.TierConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
		h := abuse.RateLimit(cfg, abuse.ByIP)(okHandler())

		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, getFrom(t, h, "1.1.1.1").Code)
		}

		rec := getFrom(t, h, "1.1.1.1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, time.Minute.String(), rec.Header().Get("X-RateLimit-Window"))

		var body map[string]httpx.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, httpx.CodeRateLimited, body["error"].Code)
		require.EqualValues(t, 3, body["error"].Details["limit"])
		require.NotNil(t, body["error"].Details["retryAfter"])
	})

	t.Run("keys are independent", func(t *testing.T) {
		cfg := abuse.TierConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := abuse.RateLimit(cfg, abuse.ByIP)(okHandler())

		require.Equal(t, http.StatusOK, getFrom(t, h, "1.1.1.1").Code)
		require.Equal(t, http.StatusTooManyRequests, getFrom(t, h, "1.1.1.1").Code)
		require.Equal(t, http.StatusOK, getFrom(t, h, "2.2.2.2").Code)
	})

	t.Run("window refills tokens", func(t *testing.T) {
		// 10 per 100ms: one token refills every 10ms.
		cfg := abuse.TierConfig{RequestsPerWindow: 10, Window: 100 * time.Millisecond, Burst: 1}
		h := abuse.RateLimit(cfg, abuse.ByIP)(okHandler())

		require.Equal(t, http.StatusOK, getFrom(t, h, "1.1.1.1").Code)
		require.Equal(t, http.StatusTooManyRequests, getFrom(t, h, "1.1.1.1").Code)

		time.Sleep(30 * time.Millisecond)
		require.Equal(t, http.StatusOK, getFrom(t, h, "1.1.1.1").Code)
	})
}

func TestKeyFuncs(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.RemoteAddr = "9.9.9.9:555"

	t.Run("by ip", func(t *testing.T) {
		require.Equal(t, "9.9.9.9", abuse.ByIP(req))
	})

	t.Run("ip and user falls back to ip when unauthenticated", func(t *testing.T) {
		require.Equal(t, "9.9.9.9", abuse.ByIPAndUser(req))
	})

	t.Run("ip and user includes the user id", func(t *testing.T) {
		authed := req.WithContext(httpx.WithAuth(req.Context(), "admin-1", "ADMIN", "sess"))
		require.Equal(t, "9.9.9.9:admin-1", abuse.ByIPAndUser(authed))
	})

	t.Run("ip and path", func(t *testing.T) {
		require.Equal(t, "9.9.9.9:/admin/stats", abuse.ByIPAndPath(req))
	})
}

func TestTierFromEnv(t *testing.T) {
	def := abuse.TierConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "42")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_TEST_BURST", "7")

		cfg := abuse.TierFromEnv("TEST", def)
		require.Equal(t, 42, cfg.RequestsPerWindow)
		require.Equal(t, 30*time.Second, cfg.Window)
		require.Equal(t, 7, cfg.Burst)
	})

	t.Run("malformed values keep the defaults", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "not-a-number")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "-1")

		cfg := abuse.TierFromEnv("TEST", def)
		require.Equal(t, def, cfg)
	})
}
