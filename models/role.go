package models

// Role is the account role carried in access tokens and checked by route guards.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleAssociate  Role = "ASSOCIATE"
	RoleStaff      Role = "STAFF"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAssociate, RoleStaff, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
