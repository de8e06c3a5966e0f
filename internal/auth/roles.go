package auth

// Role is the account type carried in the "role" claim.
type Role string

const (
	RoleUser       Role = "user"
	RoleStoreOwner Role = "store_owner"
	RoleAdmin      Role = "admin"
)

// RoleClaim is the private claim holding the account role.
const RoleClaim = "role"

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleStoreOwner, RoleAdmin:
		return true
	}
	return false
}
