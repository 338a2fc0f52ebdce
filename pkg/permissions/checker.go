// Package permissions maps company roles to permission strings and checks
// required permissions against them, with support for wildcards.
//
// Permission Format:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "customfield.*")
//   - "resource.action" - Specific action (e.g., "customfield.read")
package permissions

import (
	"strings"
)

// Company roles held by an account through a membership
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Custom-field permissions
const (
	CustomFieldRead   = "customfield.read"
	CustomFieldManage = "customfield.manage"
	// CustomFieldSubsidiaries allows reading across a company's subsidiary tree
	CustomFieldSubsidiaries = "customfield.subsidiaries.read"
)

var rolePermissions = map[string][]string{
	RoleOwner: {"*"},
	RoleAdmin: {"customfield.*"},
	RoleUser:  {CustomFieldRead},
}

// ForRole returns the permission set granted by a company role.
// Unknown roles grant nothing.
func ForRole(role string) []string {
	return rolePermissions[strings.ToLower(role)]
}

// IsValidRole reports whether role is one of the known company roles.
func IsValidRole(role string) bool {
	_, ok := rolePermissions[strings.ToLower(role)]
	return ok
}

// HasPermission checks if the user's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "customfield.*" matches "customfield.read", "customfield.manage", etc.
//   - Exact match for specific permissions
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the user has any of the required permissions.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}

// RoleHas reports whether the role grants the required permission.
func RoleHas(role, required string) bool {
	return HasPermission(ForRole(role), required)
}
