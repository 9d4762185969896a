package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the key does not exist (or has expired).
	ErrNotFound = errors.New("cache: not found")
	// ErrUnavailable means no backend could be reached. Callers on
	// authoritative paths must fail closed when they see this.
	ErrUnavailable = errors.New("cache: unavailable")
)

// Store is the TTL key-value abstraction shared by the revocation list,
// brute-force counters, IP reputation and CSRF records. Implementations:
// RedisStore (shared across instances), MemoryStore (per-process fallback)
// and Failover (redis with memory degradation).
//
// Incr must be atomic on the backend: two concurrent callers must never both
// observe the pre-increment count. A raw get-then-set is not acceptable here.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores value only if key is absent. Reports whether it was set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Incr atomically increments the integer at key, creating it at 1,
	// and refreshes its expiry to ttl. Returns the post-increment value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Expire resets the remaining lifetime of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining lifetime of key, or ErrNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// Key layout shared by every component writing to the store. Keeping the
// prefixes in one place stops two subsystems from colliding on a key.
const (
	blacklistPrefix  = "blacklist:"
	bruteForcePrefix = "bruteforce:"
	csrfPrefix       = "csrf:"
	reputationPrefix = "reputation:"
	repBlockPrefix   = "reputation:block:"
	familyPrefix     = "family:"
	familyRevPrefix  = "family:revoked:"
)

func BlacklistKey(tokenHash string) string  { return blacklistPrefix + tokenHash }
func BruteForceKey(key string) string       { return bruteForcePrefix + key }
func CSRFKey(tokenHash string) string       { return csrfPrefix + tokenHash }
func ReputationKey(ip string) string        { return reputationPrefix + ip }
func ReputationBlockKey(ip string) string   { return repBlockPrefix + ip }
func FamilyKey(family string) string        { return familyPrefix + family }
func FamilyRevokedKey(family string) string { return familyRevPrefix + family }
