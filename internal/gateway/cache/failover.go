package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// Failover is a Store that prefers a shared remote backend and degrades to a
// per-process memory store when the remote is unreachable.
//
// Known limitation, kept deliberate: entries written to the memory fallback
// during a remote outage are invisible to sibling instances. Revocations
// still hold on the instance that wrote them (fail-closed locally), and
// Degraded() plus the onDegrade hook make the weakened state observable
// instead of silent.
type Failover struct {
	primary  Store
	fallback Store
	logger   *slog.Logger

	degraded atomic.Bool

	// onDegrade fires on every transition into degraded mode. Wired to a
	// metric counter by the app.
	onDegrade func()
}

// NewFailover wraps primary with a memory fallback. onDegrade may be nil.
func NewFailover(primary, fallback Store, logger *slog.Logger, onDegrade func()) *Failover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Failover{
		primary:   primary,
		fallback:  fallback,
		logger:    logger,
		onDegrade: onDegrade,
	}
}

// Degraded reports whether the last primary operation failed.
func (f *Failover) Degraded() bool { return f.degraded.Load() }

func (f *Failover) noteDegraded(op string, err error) {
	if !f.degraded.Swap(true) {
		f.logger.Warn("cache primary unavailable, degrading to memory fallback",
			"op", op, "error", err)
		if f.onDegrade != nil {
			f.onDegrade()
		}
	}
}

func (f *Failover) noteHealthy() {
	if f.degraded.Swap(false) {
		f.logger.Info("cache primary recovered")
	}
}

func (f *Failover) Get(ctx context.Context, key string) (string, error) {
	v, err := f.primary.Get(ctx, key)
	switch {
	case err == nil:
		f.noteHealthy()
		return v, nil
	case errors.Is(err, ErrNotFound):
		f.noteHealthy()
		// A miss on the primary can still be a hit on the fallback: entries
		// written during an outage live only in memory until they expire.
		return f.fallback.Get(ctx, key)
	default:
		f.noteDegraded("get", err)
		return f.fallback.Get(ctx, key)
	}
}

func (f *Failover) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := f.primary.Set(ctx, key, value, ttl); err != nil {
		f.noteDegraded("set", err)
		return f.fallback.Set(ctx, key, value, ttl)
	}
	f.noteHealthy()
	return nil
}

func (f *Failover) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := f.primary.SetNX(ctx, key, value, ttl)
	if err != nil {
		f.noteDegraded("setnx", err)
		return f.fallback.SetNX(ctx, key, value, ttl)
	}
	f.noteHealthy()
	return ok, nil
}

func (f *Failover) Delete(ctx context.Context, key string) error {
	// Delete both so a fallback-era entry can't resurrect after recovery.
	ferr := f.fallback.Delete(ctx, key)
	if err := f.primary.Delete(ctx, key); err != nil {
		f.noteDegraded("delete", err)
		return ferr
	}
	f.noteHealthy()
	return ferr
}

func (f *Failover) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := f.primary.Exists(ctx, key)
	switch {
	case err != nil:
		f.noteDegraded("exists", err)
		return f.fallback.Exists(ctx, key)
	case ok:
		f.noteHealthy()
		return true, nil
	default:
		f.noteHealthy()
		return f.fallback.Exists(ctx, key)
	}
}

func (f *Failover) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := f.primary.Incr(ctx, key, ttl)
	if err != nil {
		f.noteDegraded("incr", err)
		return f.fallback.Incr(ctx, key, ttl)
	}
	f.noteHealthy()
	return n, nil
}

func (f *Failover) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := f.primary.Expire(ctx, key, ttl)
	switch {
	case err == nil:
		f.noteHealthy()
		return nil
	case errors.Is(err, ErrNotFound):
		f.noteHealthy()
		return f.fallback.Expire(ctx, key, ttl)
	default:
		f.noteDegraded("expire", err)
		return f.fallback.Expire(ctx, key, ttl)
	}
}

func (f *Failover) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := f.primary.TTL(ctx, key)
	switch {
	case err == nil:
		f.noteHealthy()
		return d, nil
	case errors.Is(err, ErrNotFound):
		f.noteHealthy()
		return f.fallback.TTL(ctx, key)
	default:
		f.noteDegraded("ttl", err)
		return f.fallback.TTL(ctx, key)
	}
}

func (f *Failover) Ping(ctx context.Context) error {
	if err := f.primary.Ping(ctx); err != nil {
		f.noteDegraded("ping", err)
		return err
	}
	f.noteHealthy()
	return nil
}
