package auth

import (
	"slices"

	"invictcrm/models"
)

// Allow-lists used by the route guards.
var (
	StaffRoles  = []models.Role{models.RoleStaff, models.RoleAdmin, models.RoleSuperAdmin}
	AdminRoles  = []models.Role{models.RoleAdmin, models.RoleSuperAdmin}
	SuperAdmins = []models.Role{models.RoleSuperAdmin}
)

// HasRole reports whether role is in allowed.
func HasRole(role models.Role, allowed ...models.Role) bool {
	return slices.Contains(allowed, role)
}

// IsStaff reports whether the caller works for the agency.
func (id Identity) IsStaff() bool {
	return HasRole(id.Role, StaffRoles...)
}
