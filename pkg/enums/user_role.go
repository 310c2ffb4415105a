package enums

import "fmt"

// UserRole is the role carried in the caller's identity.
type UserRole string

const (
	UserRoleSuperAdmin     UserRole = "super_admin"
	UserRoleAdmin          UserRole = "admin"
	UserRoleManager        UserRole = "manager"
	UserRoleSupervisor     UserRole = "supervisor"
	UserRoleClerk          UserRole = "clerk"
	UserRoleFuelOrderMaker UserRole = "fuel_order_maker"
	UserRoleFuelAttendant  UserRole = "fuel_attendant"
	UserRoleDriver         UserRole = "driver"
	UserRoleViewer         UserRole = "viewer"
)

var validUserRoles = []UserRole{
	UserRoleSuperAdmin,
	UserRoleAdmin,
	UserRoleManager,
	UserRoleSupervisor,
	UserRoleClerk,
	UserRoleFuelOrderMaker,
	UserRoleFuelAttendant,
	UserRoleDriver,
	UserRoleViewer,
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

// IsAdminTier reports whether the role can fix routing configuration itself.
func (r UserRole) IsAdminTier() bool {
	return r == UserRoleSuperAdmin || r == UserRoleAdmin
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
