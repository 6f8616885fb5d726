package rbac

// Role names. Keep these stable; they are stored on accounts and in access tokens.
const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleViewer     = "viewer"
)

// Roles lists every assignable role.
var Roles = []string{RoleAdmin, RoleTechnician, RoleViewer}

func IsAdmin(role string) bool { return role == RoleAdmin }

// IsValidRole reports whether role can be assigned to an account.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanEditDeployments reports whether role may create or update deployment records.
func CanEditDeployments(role string) bool {
	return role == RoleAdmin || role == RoleTechnician
}
