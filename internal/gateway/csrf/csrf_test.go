package csrf_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/csrf"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/cryptox"
)

func newService(t *testing.T, strict bool) *csrf.Service {
	t.Helper()
	fp, err := cryptox.NewFingerprinter([]byte("test-fingerprint-key"))
	require.NoError(t, err)
	return &csrf.Service{
		Cache:    cache.NewMemoryStore(time.Minute, nil),
		FP:       fp,
		TTL:      time.Minute,
		StrictIP: strict,
	}
}

func TestCSRF(t *testing.T) {
	ctx := context.Background()

	t.Run("issue and validate round trip", func(t *testing.T) {
		s := newService(t, false)
		token, err := s.Issue(ctx, "u-1", "sess-1", "10.0.0.1")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		require.NoError(t, s.Validate(ctx, token, "u-1", "sess-1", "10.0.0.1"))
	})

	t.Run("missing and unknown tokens rejected", func(t *testing.T) {
		s := newService(t, false)
		require.ErrorIs(t, s.Validate(ctx, "", "u-1", "sess-1", "10.0.0.1"), csrf.ErrMissing)
		require.ErrorIs(t, s.Validate(ctx, "never-issued", "u-1", "sess-1", "10.0.0.1"), csrf.ErrInvalid)
	})

	t.Run("different owner or session rejected", func(t *testing.T) {
		s := newService(t, false)
		token, err := s.Issue(ctx, "u-1", "sess-1", "10.0.0.1")
		require.NoError(t, err)

		require.ErrorIs(t, s.Validate(ctx, token, "u-2", "sess-1", "10.0.0.1"), csrf.ErrOwnerMismatch)
		require.ErrorIs(t, s.Validate(ctx, token, "u-1", "sess-2", "10.0.0.1"), csrf.ErrOwnerMismatch)
	})

	t.Run("ip mismatch tolerated when lenient", func(t *testing.T) {
		s := newService(t, false)
		token, err := s.Issue(ctx, "u-1", "sess-1", "10.0.0.1")
		require.NoError(t, err)

		require.NoError(t, s.Validate(ctx, token, "u-1", "sess-1", "172.16.0.9"))
	})

	t.Run("ip mismatch rejected when strict", func(t *testing.T) {
		s := newService(t, true)
		token, err := s.Issue(ctx, "u-1", "sess-1", "10.0.0.1")
		require.NoError(t, err)

		require.ErrorIs(t, s.Validate(ctx, token, "u-1", "sess-1", "172.16.0.9"), csrf.ErrIPMismatch)
	})

	t.Run("expired tokens rejected", func(t *testing.T) {
		s := newService(t, false)
		s.TTL = 20 * time.Millisecond

		token, err := s.Issue(ctx, "u-1", "sess-1", "10.0.0.1")
		require.NoError(t, err)

		time.Sleep(40 * time.Millisecond)
		require.ErrorIs(t, s.Validate(ctx, token, "u-1", "sess-1", "10.0.0.1"), csrf.ErrInvalid)
	})

	t.Run("revoked tokens rejected", func(t *testing.T) {
		s := newService(t, false)
		token, err := s.Issue(ctx, "u-1", "sess-1", "10.0.0.1")
		require.NoError(t, err)

		s.Revoke(ctx, token)
		require.ErrorIs(t, s.Validate(ctx, token, "u-1", "sess-1", "10.0.0.1"), csrf.ErrInvalid)
	})
}
