package shared

// Role is the coarse privilege tier assigned to every principal.
// Each principal has exactly one role at any time.
type Role string

const (
	// RoleAdmin grants unrestricted access to every project.
	RoleAdmin Role = "admin"
	// RoleManager grants access to every project regardless of ownership.
	RoleManager Role = "manager"
	// RoleUser grants access only to projects the principal created.
	RoleUser Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// PrivilegedRoles lists the roles that bypass project ownership checks.
func PrivilegedRoles() []Role {
	return []Role{RoleAdmin, RoleManager}
}
