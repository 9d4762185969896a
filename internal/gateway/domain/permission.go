package domain

// Permission is a fine-grained capability string, e.g. "product:create".
type Permission string

// Permissions used across the storefront platform. The gateway treats these
// as opaque strings; the list exists so fixed role sets are defined in one
// place.
const (
	PermProductCreate   Permission = "product:create"
	PermProductUpdate   Permission = "product:update"
	PermProductDelete   Permission = "product:delete"
	PermProductView     Permission = "product:view"
	PermOrderView       Permission = "order:view"
	PermOrderUpdate     Permission = "order:update"
	PermOrderConfirm    Permission = "order:confirm"
	PermStoreUpdate     Permission = "store:update"
	PermStoreDelete     Permission = "store:delete"
	PermStoreView       Permission = "store:view"
	PermUserManage      Permission = "user:manage"
	PermAnalyticsView   Permission = "analytics:view"
	PermInventoryManage Permission = "inventory:manage"
)

// AdminPermissions is the fixed set granted to a store admin. Owners don't
// need a set at all: ownership short-circuits every permission check.
var AdminPermissions = []Permission{
	PermProductCreate,
	PermProductUpdate,
	PermProductDelete,
	PermProductView,
	PermOrderView,
	PermOrderUpdate,
	PermOrderConfirm,
	PermStoreUpdate,
	PermStoreView,
	PermAnalyticsView,
	PermInventoryManage,
}

// CustomRole is a vendor role with an explicitly declared permission list.
type CustomRole struct {
	Name        string
	Permissions []Permission
}

// Membership is what the external membership lookup returns for a
// (user, store) pair.
type Membership struct {
	OwnerOf  bool
	AdminOf  bool
	VendorOf bool

	// CustomRole is set when the vendor relation carries a custom role.
	CustomRole *CustomRole

	// InlinePermissions is the legacy per-vendor permission list, used only
	// when no custom role is assigned.
	InlinePermissions []Permission
}

// PermissionGrant is the effective permission set resolved per request.
// It is derived, never stored.
type PermissionGrant struct {
	UserID  string
	StoreID string
	Role    Role

	// Owner grants implicitly satisfy every check.
	Owner bool

	Permissions map[Permission]struct{}
}

// Has reports whether the grant satisfies the required permission.
func (g PermissionGrant) Has(p Permission) bool {
	if g.Owner {
		return true
	}
	_, ok := g.Permissions[p]
	return ok
}

// Empty reports whether the grant carries no authority at all.
func (g PermissionGrant) Empty() bool {
	return !g.Owner && len(g.Permissions) == 0
}

// NewGrant builds a PermissionGrant from a permission list.
func NewGrant(userID, storeID string, role Role, owner bool, perms []Permission) PermissionGrant {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return PermissionGrant{
		UserID:      userID,
		StoreID:     storeID,
		Role:        role,
		Owner:       owner,
		Permissions: set,
	}
}
