package audit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/audit"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

func TestClassifyPath(t *testing.T) {
	cases := []struct {
		path string
		want domain.DataClassification
	}{
		{"/api/admin/stats", domain.ClassificationRestricted},
		{"/api/auth/refresh", domain.ClassificationRestricted},
		{"/admin/dashboard", domain.ClassificationRestricted},
		{"/api/payments/charge", domain.ClassificationConfidential},
		{"/api/users/42", domain.ClassificationConfidential},
		{"/api/orders/9", domain.ClassificationConfidential},
		{"/api/products", domain.ClassificationInternal},
		{"/healthz", domain.ClassificationPublic},
		{"/", domain.ClassificationPublic},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			require.Equal(t, tc.want, audit.ClassifyPath(tc.path))
		})
	}
}

func TestClassificationOrdering(t *testing.T) {
	require.True(t, domain.ClassificationRestricted.AtLeast(domain.ClassificationConfidential))
	require.False(t, domain.ClassificationInternal.AtLeast(domain.ClassificationConfidential))
	require.Equal(t, domain.ClassificationRestricted,
		domain.ClassificationInternal.Max(domain.ClassificationRestricted))
	require.Equal(t, domain.ClassificationConfidential,
		domain.ClassificationConfidential.Max(domain.ClassificationPublic))
}

func TestCompliance(t *testing.T) {
	t.Run("pii fields in body set pii and gdpr", func(t *testing.T) {
		flags := audit.Compliance("/api/products", `{"email":"a@b.c","name":"x"}`)
		require.True(t, flags.PII)
		require.True(t, flags.GDPR)
		require.False(t, flags.PCI)
	})

	t.Run("user paths imply pii even without a body", func(t *testing.T) {
		flags := audit.Compliance("/api/users/42")
		require.True(t, flags.PII)
		require.True(t, flags.GDPR)
	})

	t.Run("payment paths set pci", func(t *testing.T) {
		flags := audit.Compliance("/api/payments/charge", `{"amount":100}`)
		require.True(t, flags.PCI)
		require.False(t, flags.HIPAA)
	})

	t.Run("clean internal request sets nothing", func(t *testing.T) {
		require.Equal(t, domain.ComplianceFlags{}, audit.Compliance("/api/products", `{"name":"widget"}`))
	})
}
