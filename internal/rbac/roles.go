package rbac

// Dashboard role names. Keep these stable; they are part of the token contract.
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleMember     = "member"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// KeyManagers may issue tenant API keys.
var KeyManagers = []string{RoleOwner, RoleAdmin}
