package abuse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/abuse"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

func newGuard(t *testing.T) *abuse.BruteForceGuard {
	t.Helper()
	return &abuse.BruteForceGuard{
		Cache:      cache.NewMemoryStore(time.Minute, nil),
		Threshold:  3,
		BaseWindow: 50 * time.Millisecond,
		MaxBlock:   200 * time.Millisecond,
	}
}

func TestBruteForceStateMachine(t *testing.T) {
	ctx := context.Background()

	t.Run("first failures track without locking", func(t *testing.T) {
		g := newGuard(t)

		st := g.RecordFailure(ctx, "1.2.3.4")
		require.Equal(t, domain.LockTracking, st.State)
		require.EqualValues(t, 1, st.Count)

		st = g.RecordFailure(ctx, "1.2.3.4")
		require.Equal(t, domain.LockTracking, st.State)
		require.EqualValues(t, 2, st.Count)

		require.False(t, g.Check(ctx, "1.2.3.4").Locked())
	})

	t.Run("third failure crosses the threshold", func(t *testing.T) {
		g := newGuard(t)

		g.RecordFailure(ctx, "1.2.3.4")
		g.RecordFailure(ctx, "1.2.3.4")
		st := g.RecordFailure(ctx, "1.2.3.4")

		require.Equal(t, domain.LockLocked, st.State)
		require.EqualValues(t, 3, st.Count)
		require.Equal(t, g.BaseWindow, st.RetryAfter)

		check := g.Check(ctx, "1.2.3.4")
		require.True(t, check.Locked())
		require.Greater(t, check.RetryAfter, time.Duration(0))
	})

	t.Run("backoff doubles per failure past threshold and caps", func(t *testing.T) {
		g := newGuard(t)

		for range 3 {
			g.RecordFailure(ctx, "k")
		}
		st := g.RecordFailure(ctx, "k")
		require.Equal(t, 2*g.BaseWindow, st.RetryAfter)

		st = g.RecordFailure(ctx, "k")
		require.Equal(t, 4*g.BaseWindow, st.RetryAfter)

		// 50ms * 2^3 = 400ms exceeds the 200ms cap.
		st = g.RecordFailure(ctx, "k")
		require.Equal(t, g.MaxBlock, st.RetryAfter)
	})

	t.Run("success resets to clear", func(t *testing.T) {
		g := newGuard(t)

		for range 3 {
			g.RecordFailure(ctx, "k")
		}
		require.True(t, g.Check(ctx, "k").Locked())

		g.RecordSuccess(ctx, "k")
		require.Equal(t, domain.LockClear, g.Check(ctx, "k").State)

		// Next failure is a fresh first failure.
		st := g.RecordFailure(ctx, "k")
		require.Equal(t, domain.LockTracking, st.State)
		require.EqualValues(t, 1, st.Count)
	})

	t.Run("lock clears after the block duration elapses", func(t *testing.T) {
		g := newGuard(t)

		for range 3 {
			g.RecordFailure(ctx, "k")
		}
		require.True(t, g.Check(ctx, "k").Locked())

		time.Sleep(g.BaseWindow + 20*time.Millisecond)
		require.Equal(t, domain.LockClear, g.Check(ctx, "k").State)

		st := g.RecordFailure(ctx, "k")
		require.EqualValues(t, 1, st.Count)
	})

	t.Run("keys are independent", func(t *testing.T) {
		g := newGuard(t)

		for range 3 {
			g.RecordFailure(ctx, "attacker")
		}
		require.True(t, g.Check(ctx, "attacker").Locked())
		require.False(t, g.Check(ctx, "bystander").Locked())
	})
}

func TestBruteForceMiddleware(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t)

	handler := g.Middleware(abuse.ByIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.RemoteAddr = "10.0.0.9:4444"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	for range 3 {
		g.RecordFailure(ctx, "10.0.0.9")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "BRUTE_FORCE_LOCKOUT")
	require.Contains(t, rec.Body.String(), "retryAfter")
}
