package enums

import "strings"

// UserRole is the portal role carried in access tokens.
type UserRole string

const (
	UserRoleEmployee UserRole = "employee"
	UserRoleAdmin    UserRole = "admin"
)

var userRoles = newSet("user role", strings.ToLower, UserRoleEmployee, UserRoleAdmin)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return userRoles.has(r) }

// ParseUserRole is case-insensitive.
func ParseUserRole(value string) (UserRole, error) { return userRoles.parse(value) }
