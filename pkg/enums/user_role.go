package enums

import "fmt"

// UserRole is the actor role carried by externally issued credentials.
type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"
	UserRoleSupervisor UserRole = "supervisor"
	UserRoleStaff      UserRole = "staff"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleSupervisor,
	UserRoleStaff,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanApproveSupervised reports whether the role satisfies a
// require_supervisor gate on an invoice.
func (r UserRole) CanApproveSupervised() bool {
	return r == UserRoleSupervisor || r == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
