package access

import (
	"context"
	"fmt"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

// MembershipResolver is the external lookup answering "what is this user to
// this store". The gateway never reads membership tables directly.
type MembershipResolver interface {
	ResolveMembership(ctx context.Context, userID, storeID string) (domain.Membership, error)
}

// Controller resolves a caller's effective permission set for a store by
// combining the token's platform role with a live membership lookup.
type Controller struct {
	Members MembershipResolver
}

// ResolvePermissions derives the caller's PermissionGrant for storeID.
//
// Resolution order: platform OWNER outranks everything; then the store's own
// owner; then its admin set; then a vendor relation, whose permissions come
// from the custom role when one is assigned or from the legacy inline list
// otherwise. No relation at all resolves to an empty, deny-all grant.
func (c *Controller) ResolvePermissions(ctx context.Context, userID string, role domain.Role, storeID string) (domain.PermissionGrant, error) {
	// Platform owners and admins carry their authority into every store.
	if role == domain.RoleOwner {
		return domain.NewGrant(userID, storeID, domain.RoleOwner, true, nil), nil
	}
	if role == domain.RoleAdmin {
		return domain.NewGrant(userID, storeID, domain.RoleAdmin, false, domain.AdminPermissions), nil
	}

	if storeID == "" {
		// No store scope to resolve against: nothing beyond the platform
		// role applies.
		return domain.NewGrant(userID, storeID, role, false, nil), nil
	}

	m, err := c.Members.ResolveMembership(ctx, userID, storeID)
	if err != nil {
		return domain.PermissionGrant{}, fmt.Errorf("resolve membership: %w", err)
	}

	switch {
	case m.OwnerOf:
		return domain.NewGrant(userID, storeID, role, true, nil), nil
	case m.AdminOf:
		return domain.NewGrant(userID, storeID, role, false, domain.AdminPermissions), nil
	case m.VendorOf:
		if m.CustomRole != nil {
			return domain.NewGrant(userID, storeID, role, false, m.CustomRole.Permissions), nil
		}
		return domain.NewGrant(userID, storeID, role, false, m.InlinePermissions), nil
	default:
		return domain.NewGrant(userID, storeID, role, false, nil), nil
	}
}

// HasStoreRelation reports whether the caller may touch storeID at all for
// the given operation. Owners (platform or store) always may; admins always
// may; vendors only for reads.
func (c *Controller) HasStoreRelation(ctx context.Context, userID string, role domain.Role, storeID string, op Operation) (bool, error) {
	if role == domain.RoleOwner {
		return true, nil
	}
	if role == domain.RoleAdmin {
		return true, nil
	}

	m, err := c.Members.ResolveMembership(ctx, userID, storeID)
	if err != nil {
		return false, fmt.Errorf("resolve membership: %w", err)
	}

	switch {
	case m.OwnerOf, m.AdminOf:
		return true, nil
	case m.VendorOf:
		return op == OpRead, nil
	default:
		return false, nil
	}
}

// Operation distinguishes read from write store access.
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
)
