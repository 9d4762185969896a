package domain

import "time"

// Role is the platform-wide role carried in token claims. Store-scoped
// authority (which stores a user owns or administers) is resolved separately
// per request through the membership lookup.
type Role string

const (
	RoleOwner    Role = "OWNER"
	RoleAdmin    Role = "ADMIN"
	RoleVendor   Role = "VENDOR"
	RoleCustomer Role = "CUSTOMER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleVendor, RoleCustomer:
		return true
	}
	return false
}

// User is the slice of the platform user record the gateway needs: enough to
// compare live role against token claims and to check session validity.
// The full user store lives outside the gateway.
type User struct {
	ID         string
	Username   string
	Role       Role
	TelegramID string
	IsActive   bool
	CreatedAt  time.Time
}
