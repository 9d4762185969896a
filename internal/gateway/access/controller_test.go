package access_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/access"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

type stubMembers struct {
	memberships map[string]domain.Membership // keyed userID|storeID
	err         error
}

func (s *stubMembers) ResolveMembership(ctx context.Context, userID, storeID string) (domain.Membership, error) {
	if s.err != nil {
		return domain.Membership{}, s.err
	}
	return s.memberships[userID+"|"+storeID], nil
}

func TestResolvePermissions(t *testing.T) {
	ctx := context.Background()
	members := &stubMembers{memberships: map[string]domain.Membership{
		"owner-1|store-a": {OwnerOf: true},
		"admin-1|store-a": {AdminOf: true},
		"vendor-custom|store-a": {VendorOf: true, CustomRole: &domain.CustomRole{
			Name:        "catalog-editor",
			Permissions: []domain.Permission{domain.PermProductCreate, domain.PermProductUpdate},
		}},
		"vendor-legacy|store-a": {VendorOf: true, InlinePermissions: []domain.Permission{domain.PermProductView}},
	}}
	c := &access.Controller{Members: members}

	t.Run("platform owner gets implicit everything", func(t *testing.T) {
		grant, err := c.ResolvePermissions(ctx, "root", domain.RoleOwner, "store-a")
		require.NoError(t, err)
		require.True(t, grant.Owner)
		require.True(t, grant.Has(domain.PermStoreDelete))
		require.True(t, grant.Has(domain.Permission("anything:at-all")))
	})

	t.Run("store owner gets implicit everything even with empty grant", func(t *testing.T) {
		grant, err := c.ResolvePermissions(ctx, "owner-1", domain.RoleCustomer, "store-a")
		require.NoError(t, err)
		require.True(t, grant.Owner)
		require.Empty(t, grant.Permissions)
		require.True(t, grant.Has(domain.PermOrderConfirm))
	})

	t.Run("store admin gets the fixed admin set", func(t *testing.T) {
		grant, err := c.ResolvePermissions(ctx, "admin-1", domain.RoleCustomer, "store-a")
		require.NoError(t, err)
		require.False(t, grant.Owner)
		require.True(t, grant.Has(domain.PermProductCreate))
		require.True(t, grant.Has(domain.PermOrderConfirm))
		require.False(t, grant.Has(domain.PermStoreDelete))
	})

	t.Run("vendor with custom role passes iff permission declared", func(t *testing.T) {
		grant, err := c.ResolvePermissions(ctx, "vendor-custom", domain.RoleVendor, "store-a")
		require.NoError(t, err)
		require.True(t, grant.Has(domain.PermProductCreate))
		require.True(t, grant.Has(domain.PermProductUpdate))
		// No implicit admin fallback.
		require.False(t, grant.Has(domain.PermOrderConfirm))
		require.False(t, grant.Has(domain.PermProductDelete))
	})

	t.Run("vendor without custom role falls back to inline list", func(t *testing.T) {
		grant, err := c.ResolvePermissions(ctx, "vendor-legacy", domain.RoleVendor, "store-a")
		require.NoError(t, err)
		require.True(t, grant.Has(domain.PermProductView))
		require.False(t, grant.Has(domain.PermProductCreate))
	})

	t.Run("stranger resolves to deny-all", func(t *testing.T) {
		grant, err := c.ResolvePermissions(ctx, "stranger", domain.RoleCustomer, "store-a")
		require.NoError(t, err)
		require.True(t, grant.Empty())
		require.False(t, grant.Has(domain.PermProductView))
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		broken := &access.Controller{Members: &stubMembers{err: errors.New("membership service down")}}
		_, err := broken.ResolvePermissions(ctx, "anyone", domain.RoleCustomer, "store-a")
		require.Error(t, err)
	})
}

func TestHasStoreRelation(t *testing.T) {
	ctx := context.Background()
	members := &stubMembers{memberships: map[string]domain.Membership{
		"owner-1|store-a":  {OwnerOf: true},
		"admin-1|store-a":  {AdminOf: true},
		"vendor-1|store-a": {VendorOf: true},
	}}
	c := &access.Controller{Members: members}

	cases := []struct {
		name   string
		userID string
		role   domain.Role
		op     access.Operation
		want   bool
	}{
		{"platform owner writes anywhere", "root", domain.RoleOwner, access.OpWrite, true},
		{"platform admin writes anywhere", "staff", domain.RoleAdmin, access.OpWrite, true},
		{"store owner writes own store", "owner-1", domain.RoleCustomer, access.OpWrite, true},
		{"store admin writes own store", "admin-1", domain.RoleCustomer, access.OpWrite, true},
		{"vendor reads own store", "vendor-1", domain.RoleVendor, access.OpRead, true},
		{"vendor cannot write store", "vendor-1", domain.RoleVendor, access.OpWrite, false},
		{"stranger denied", "stranger", domain.RoleCustomer, access.OpRead, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := c.HasStoreRelation(ctx, tc.userID, tc.role, "store-a", tc.op)
			require.NoError(t, err)
			require.Equal(t, tc.want, ok)
		})
	}
}
