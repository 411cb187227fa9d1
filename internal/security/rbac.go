package security

import "campusdesk/api/internal/models"

type Permission string

const (
	PermManageStudents Permission = "manage_students"
	PermManageAlumni   Permission = "manage_alumni"
	PermManageEvents   Permission = "manage_events"
	PermManageNews     Permission = "manage_news"
	PermViewReports    Permission = "view_reports"
	PermManageUsers    Permission = "manage_users"
	PermManageSystem   Permission = "manage_system"
)

// RolePermissions is the whole authorization policy: flat sets, no
// hierarchy, no inheritance. Adding a role means adding an entry here and
// nothing else. Roles absent from the map hold no permissions.
var RolePermissions = map[models.UserRole][]Permission{
	models.UserRoleTPO: {
		PermManageStudents,
		PermManageAlumni,
		PermManageEvents,
		PermManageNews,
		PermViewReports,
	},
	models.UserRoleAdmin: {
		PermManageStudents,
		PermManageAlumni,
		PermManageEvents,
		PermManageNews,
		PermViewReports,
		PermManageUsers,
		PermManageSystem,
	},
}

// HasPermission is a pure lookup against RolePermissions. Unknown role or
// unknown permission denies.
func HasPermission(role models.UserRole, perm Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the role's permission set.
func PermissionsForRole(role models.UserRole) []Permission {
	perms := RolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
