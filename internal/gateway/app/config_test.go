package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Empty values read as unset.
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")

	cfg := LoadConfig()

	require.Equal(t, "storefront-gateway", cfg.Issuer)
	require.Equal(t, "storefront-api", cfg.Audience)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, int64(3), cfg.BruteForceThreshold)
	require.Equal(t, 8080, cfg.Port)
	require.Contains(t, cfg.AuditExcludePaths, "/healthz")
	require.Contains(t, cfg.AuditExcludeHeaders, "Authorization")
	require.False(t, cfg.CSRFStrictIP)
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Run("duration string", func(t *testing.T) {
		t.Setenv("TEST_DURATION", "90s")
		require.Equal(t, 90*time.Second, getEnvDurationOrDefault("TEST_DURATION", time.Minute))
	})

	t.Run("bare integer seconds", func(t *testing.T) {
		t.Setenv("TEST_DURATION", "120")
		require.Equal(t, 2*time.Minute, getEnvDurationOrDefault("TEST_DURATION", time.Minute))
	})

	t.Run("garbage falls back", func(t *testing.T) {
		t.Setenv("TEST_DURATION", "soon")
		require.Equal(t, time.Minute, getEnvDurationOrDefault("TEST_DURATION", time.Minute))
	})

	t.Run("unset falls back", func(t *testing.T) {
		require.Equal(t, time.Minute, getEnvDurationOrDefault("TEST_DURATION_UNSET", time.Minute))
	})
}

func TestGetEnvListOrDefault(t *testing.T) {
	t.Run("splits and trims", func(t *testing.T) {
		t.Setenv("TEST_LIST", "/a, /b ,,/c")
		require.Equal(t, []string{"/a", "/b", "/c"}, getEnvListOrDefault("TEST_LIST", nil))
	})

	t.Run("only separators falls back", func(t *testing.T) {
		t.Setenv("TEST_LIST", " , ,")
		require.Equal(t, []string{"/x"}, getEnvListOrDefault("TEST_LIST", []string{"/x"}))
	})
}
