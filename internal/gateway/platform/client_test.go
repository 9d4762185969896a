package platform_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/platform"
)

func TestClientGetUser(t *testing.T) {
	t.Run("decodes a user record", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/internal/users/usr-1", r.URL.Path)
			require.Equal(t, "svc-key", r.Header.Get("X-Service-Key"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "usr-1",
				"username": "mira",
				"role": "ADMIN",
				"telegramId": "8844001",
				"isActive": true,
				"createdAt": "2026-01-12T09:30:00Z"
			}`))
		}))
		defer srv.Close()

		client := platform.New(srv.URL, "svc-key")

		u, err := client.GetUser(context.Background(), "usr-1")
		require.NoError(t, err)
		require.Equal(t, "usr-1", u.ID)
		require.Equal(t, domain.RoleAdmin, u.Role)
		require.Equal(t, "8844001", u.TelegramID)
		require.True(t, u.IsActive)
		require.Equal(t, 2026, u.CreatedAt.Year())
	})

	t.Run("missing user maps to ErrNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		client := platform.New(srv.URL, "svc-key")

		_, err := client.GetUser(context.Background(), "usr-missing")
		require.ErrorIs(t, err, platform.ErrNotFound)
	})

	t.Run("server errors surface status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream db down", http.StatusBadGateway)
		}))
		defer srv.Close()

		client := platform.New(srv.URL, "svc-key")

		_, err := client.GetUser(context.Background(), "usr-1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "502")
		require.Contains(t, err.Error(), "upstream db down")
	})
}

func TestClientResolveMembership(t *testing.T) {
	t.Run("vendor with custom role", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/internal/stores/store-7/members/usr-2", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"owner": false,
				"admin": false,
				"vendor": true,
				"customRole": {
					"name": "catalog-editor",
					"permissions": ["product:create", "product:update"]
				}
			}`))
		}))
		defer srv.Close()

		client := platform.New(srv.URL, "svc-key")

		m, err := client.ResolveMembership(context.Background(), "usr-2", "store-7")
		require.NoError(t, err)
		require.True(t, m.VendorOf)
		require.NotNil(t, m.CustomRole)
		require.Equal(t, "catalog-editor", m.CustomRole.Name)
		require.Contains(t, m.CustomRole.Permissions, domain.PermProductCreate)
	})

	t.Run("no relation yields empty membership without error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		client := platform.New(srv.URL, "svc-key")

		m, err := client.ResolveMembership(context.Background(), "usr-9", "store-7")
		require.NoError(t, err)
		require.False(t, m.OwnerOf)
		require.False(t, m.AdminOf)
		require.False(t, m.VendorOf)
		require.Nil(t, m.CustomRole)
		require.Empty(t, m.InlinePermissions)
	})
}
