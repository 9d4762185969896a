package abuse

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// BruteForceGuard implements consecutive-failure lockout with exponential
// backoff. The counter lives in the shared cache so every gateway instance
// behind the load balancer observes the same state; all mutations go through
// the store's atomic increment to avoid two concurrent failures both reading
// a pre-increment count.
type BruteForceGuard struct {
	Cache cache.Store

	// Threshold is the consecutive-failure count at which a key locks.
	Threshold int64
	// BaseWindow is both the failure-tracking window and the first block
	// duration. Each failure past the threshold doubles the block, up to
	// MaxBlock.
	BaseWindow time.Duration
	// MaxBlock caps the exponential backoff.
	MaxBlock time.Duration
}

// LockStatus is the outcome of a lockout check for one key.
type LockStatus struct {
	State      domain.LockState
	Count      int64
	RetryAfter time.Duration
}

// Locked reports whether the key is currently denied.
func (s LockStatus) Locked() bool { return s.State == domain.LockLocked }

// blockDuration computes the backoff for a count at or past the threshold:
// BaseWindow * 2^(count-threshold), capped at MaxBlock.
func (g *BruteForceGuard) blockDuration(count int64) time.Duration {
	exp := count - g.Threshold
	// Past 62 the shift overflows; the cap applies long before that.
	if exp > 62 {
		return g.MaxBlock
	}
	d := g.BaseWindow << uint(exp)
	if d <= 0 || d > g.MaxBlock {
		return g.MaxBlock
	}
	return d
}

// Check reports the current lock state for a key without mutating it. Store
// errors are treated as clear with a warning: lockout is protective
// bookkeeping layered on top of credential checks, not the credential check
// itself, so an unreachable store must not lock everyone out.
func (g *BruteForceGuard) Check(ctx context.Context, key string) LockStatus {
	raw, err := g.Cache.Get(ctx, cache.BruteForceKey(key))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slogx.FromContext(ctx).Warn("brute force check degraded", "error", err, "key", key)
		}
		return LockStatus{State: domain.LockClear}
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return LockStatus{State: domain.LockClear}
	}

	if count < g.Threshold {
		return LockStatus{State: domain.LockTracking, Count: count}
	}

	remaining, err := g.Cache.TTL(ctx, cache.BruteForceKey(key))
	if err != nil || remaining <= 0 {
		remaining = g.blockDuration(count)
	}
	return LockStatus{State: domain.LockLocked, Count: count, RetryAfter: remaining}
}

// RecordFailure registers one failed attempt and returns the resulting
// state. The failure that crosses the threshold transitions the key to
// locked and stretches the entry's TTL to the backoff duration, so the lock
// clears automatically once the backoff elapses with no further failures.
func (g *BruteForceGuard) RecordFailure(ctx context.Context, key string) LockStatus {
	count, err := g.Cache.Incr(ctx, cache.BruteForceKey(key), g.BaseWindow)
	if err != nil {
		slogx.FromContext(ctx).Warn("brute force bookkeeping degraded", "error", err, "key", key)
		return LockStatus{State: domain.LockClear}
	}

	if count < g.Threshold {
		return LockStatus{State: domain.LockTracking, Count: count}
	}

	block := g.blockDuration(count)
	if err := g.Cache.Expire(ctx, cache.BruteForceKey(key), block); err != nil {
		slogx.FromContext(ctx).Warn("brute force lock extension failed", "error", err, "key", key)
	}

	slogx.FromContext(ctx).Warn("brute force lockout",
		"key", key,
		"count", count,
		"block_duration", block,
	)
	return LockStatus{State: domain.LockLocked, Count: count, RetryAfter: block}
}

// RecordSuccess resets the key to clear. A successful authentication wipes
// the consecutive-failure streak entirely.
func (g *BruteForceGuard) RecordSuccess(ctx context.Context, key string) {
	if err := g.Cache.Delete(ctx, cache.BruteForceKey(key)); err != nil {
		slogx.FromContext(ctx).Warn("brute force reset failed", "error", err, "key", key)
	}
}

// Middleware denies requests from currently locked keys before they reach
// authentication. Failures themselves are recorded by the auth handlers,
// which know whether an attempt actually failed.
func (g *BruteForceGuard) Middleware(keyFn KeyFunc) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			status := g.Check(r.Context(), keyFn(r))
			if status.Locked() {
				retryAfter := max(int(status.RetryAfter.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				obs.Denial("brute_force")
				httpx.WriteErrorDetails(w, http.StatusTooManyRequests, httpx.CodeBruteForceLockout,
					"too many failed attempts, try again later", map[string]any{
						"retryAfter": retryAfter,
					})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
