package abuse

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// TierConfig defines the rate limiting parameters for one endpoint tier.
type TierConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Rate limit tiers for the different endpoint classes.
// Each can be overridden via environment variables (see init() below).
var (
	// GlobalTier applies to every request regardless of route.
	// Override with: RATELIMIT_GLOBAL_REQUESTS, RATELIMIT_GLOBAL_WINDOW_SEC, RATELIMIT_GLOBAL_BURST
	GlobalTier = TierConfig{
		RequestsPerWindow: 1000,
		Window:            time.Minute,
		Burst:             1000,
	}

	// AuthTier covers authentication endpoints (brute force prevention).
	// Override with: RATELIMIT_AUTH_REQUESTS, RATELIMIT_AUTH_WINDOW_SEC, RATELIMIT_AUTH_BURST
	AuthTier = TierConfig{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		Burst:             5,
	}

	// UploadTier covers file upload endpoints.
	// Override with: RATELIMIT_UPLOAD_REQUESTS, RATELIMIT_UPLOAD_WINDOW_SEC, RATELIMIT_UPLOAD_BURST
	UploadTier = TierConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             10,
	}

	// APITier covers general authenticated API traffic.
	// Override with: RATELIMIT_API_REQUESTS, RATELIMIT_API_WINDOW_SEC, RATELIMIT_API_BURST
	APITier = TierConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Burst:             100,
	}

	// AdminTier covers the admin API. Keyed by IP+userId so that distinct
	// admins behind one NAT do not throttle each other.
	// Override with: RATELIMIT_ADMIN_REQUESTS, RATELIMIT_ADMIN_WINDOW_SEC, RATELIMIT_ADMIN_BURST
	AdminTier = TierConfig{
		RequestsPerWindow: 30,
		Window:            time.Minute,
		Burst:             30,
	}
)

func init() {
	GlobalTier = TierFromEnv("GLOBAL", GlobalTier)
	AuthTier = TierFromEnv("AUTH", AuthTier)
	UploadTier = TierFromEnv("UPLOAD", UploadTier)
	APITier = TierFromEnv("API", APITier)
	AdminTier = TierFromEnv("ADMIN", AdminTier)
}

// TierFromEnv reads tier configuration from environment variables following
// the pattern RATELIMIT_{prefix}_{field}, e.g. RATELIMIT_AUTH_REQUESTS,
// RATELIMIT_AUTH_WINDOW_SEC, RATELIMIT_AUTH_BURST. Missing or malformed
// variables leave the default untouched.
func TierFromEnv(prefix string, def TierConfig) TierConfig {
	cfg := def

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			cfg.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			cfg.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			cfg.Burst = burst
		}
	}

	return cfg
}

// KeyFunc extracts the grouping key for rate limiting from a request
// (IP address, user id, or a combination).
type KeyFunc func(*http.Request) string

// ByIP keys the limiter on the client IP address.
func ByIP(r *http.Request) string {
	return httpx.ClientIP(r)
}

// ByIPAndUser keys the limiter on IP plus the authenticated user id.
// Unauthenticated requests fall back to IP alone.
func ByIPAndUser(r *http.Request) string {
	ip := httpx.ClientIP(r)
	if userID := httpx.UserIDFromContext(r.Context()); userID != "" {
		return ip + ":" + userID
	}
	return ip
}

// ByIPAndPath keys the limiter on IP plus the request path, so lockstep
// hammering of a single endpoint is throttled independently.
func ByIPAndPath(r *http.Request) string {
	return strings.Join([]string{httpx.ClientIP(r), r.URL.Path}, ":")
}

// keyedLimiter manages one rate.Limiter per key.
type keyedLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (kl *keyedLimiter) get(key string) *rate.Limiter {
	if limiter, ok := kl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(kl.rate, kl.burst)
	actual, _ := kl.limiters.LoadOrStore(key, limiter)

	kl.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets are full again, i.e. keys that
// have been idle long enough to not matter. Runs at most every 5 minutes.
func (kl *keyedLimiter) maybeCleanup() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if time.Since(kl.lastCleanup) < 5*time.Minute {
		return
	}
	kl.lastCleanup = time.Now()

	kl.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(kl.burst) {
			kl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit creates a rate limiting middleware for one tier. The keyFn
// determines how requests are grouped.
func RateLimit(cfg TierConfig, keyFn KeyFunc) httpx.Middleware {
	ratePerSecond := float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()

	kl := &keyedLimiter{
		rate:        rate.Limit(ratePerSecond),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyFn(r)
			if key == "" {
				// No key means nothing to group by; allow but note it.
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := kl.get(key)
			if !limiter.Allow() {
				// Peek at when the next token arrives without consuming it.
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				obs.Denial("rate_limit")
				httpx.WriteErrorDetails(w, http.StatusTooManyRequests, httpx.CodeRateLimited,
					"too many requests, please try again later", map[string]any{
						"retryAfter": retryAfter,
						"limit":      cfg.RequestsPerWindow,
					})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
