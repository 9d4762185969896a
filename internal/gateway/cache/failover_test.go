package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/stretchr/testify/require"
)

// flakyStore wraps a MemoryStore and fails every operation while down.
type flakyStore struct {
	*cache.MemoryStore
	down bool
}

var errDown = errors.New("connection refused")

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	if f.down {
		return "", errDown
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.down {
		return errDown
	}
	return f.MemoryStore.Set(ctx, key, value, ttl)
}

func (f *flakyStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if f.down {
		return false, errDown
	}
	return f.MemoryStore.SetNX(ctx, key, value, ttl)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.down {
		return errDown
	}
	return f.MemoryStore.Delete(ctx, key)
}

func (f *flakyStore) Exists(ctx context.Context, key string) (bool, error) {
	if f.down {
		return false, errDown
	}
	return f.MemoryStore.Exists(ctx, key)
}

func (f *flakyStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if f.down {
		return 0, errDown
	}
	return f.MemoryStore.Incr(ctx, key, ttl)
}

func (f *flakyStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if f.down {
		return errDown
	}
	return f.MemoryStore.Expire(ctx, key, ttl)
}

func (f *flakyStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if f.down {
		return 0, errDown
	}
	return f.MemoryStore.TTL(ctx, key)
}

func (f *flakyStore) Ping(ctx context.Context) error {
	if f.down {
		return errDown
	}
	return nil
}

func newFailoverPair(t *testing.T) (*flakyStore, *cache.Failover, *int) {
	t.Helper()
	primary := &flakyStore{MemoryStore: cache.NewMemoryStore(time.Minute, nil)}
	fallback := cache.NewMemoryStore(time.Minute, nil)
	degradations := 0
	fo := cache.NewFailover(primary, fallback, nil, func() { degradations++ })
	return primary, fo, &degradations
}

func TestFailoverHealthyPath(t *testing.T) {
	ctx := context.Background()
	_, fo, degradations := newFailoverPair(t)

	require.NoError(t, fo.Set(ctx, "k", "v", time.Minute))

	v, err := fo.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.False(t, fo.Degraded())
	require.Zero(t, *degradations)
}

func TestFailoverDegradesOnPrimaryFailure(t *testing.T) {
	ctx := context.Background()
	primary, fo, degradations := newFailoverPair(t)

	primary.down = true

	// Writes land in the fallback and remain readable in degraded mode.
	require.NoError(t, fo.Set(ctx, "blacklist:abc", "logout", time.Minute))

	ok, err := fo.Exists(ctx, "blacklist:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, fo.Degraded())
	require.Equal(t, 1, *degradations)
}

func TestFailoverReadsFallbackAfterRecovery(t *testing.T) {
	ctx := context.Background()
	primary, fo, _ := newFailoverPair(t)

	// An entry written during an outage must still be visible after the
	// primary comes back, otherwise a revoked token would re-validate.
	primary.down = true
	require.NoError(t, fo.Set(ctx, "blacklist:tok", "logout", time.Minute))

	primary.down = false
	ok, err := fo.Exists(ctx, "blacklist:tok")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, fo.Degraded())
}

func TestFailoverIncrFallsBack(t *testing.T) {
	ctx := context.Background()
	primary, fo, _ := newFailoverPair(t)

	n, err := fo.Incr(ctx, "bruteforce:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	primary.down = true

	// Counter restarts in the fallback; per-process but monotone.
	n, err = fo.Incr(ctx, "bruteforce:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = fo.Incr(ctx, "bruteforce:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestFailoverDeleteClearsBothBackends(t *testing.T) {
	ctx := context.Background()
	primary, fo, _ := newFailoverPair(t)

	primary.down = true
	require.NoError(t, fo.Set(ctx, "k", "fallback-era", time.Minute))
	primary.down = false
	require.NoError(t, fo.Set(ctx, "k", "primary-era", time.Minute))

	require.NoError(t, fo.Delete(ctx, "k"))

	_, err := fo.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestFailoverPing(t *testing.T) {
	ctx := context.Background()
	primary, fo, _ := newFailoverPair(t)

	require.NoError(t, fo.Ping(ctx))

	primary.down = true
	require.Error(t, fo.Ping(ctx))
	require.True(t, fo.Degraded())

	primary.down = false
	require.NoError(t, fo.Ping(ctx))
	require.False(t, fo.Degraded())
}
