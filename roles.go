package auth

import "slices"

// Well known role names
const (
	// RoleGuest is an guest role (ie. view)
	RoleGuest = "guest"
	// RoleMember us a member (i.e. view, edit)
	RoleMember = "member"
	// RoleEditor can edit content
	RoleEditor = "editor"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin = "admin"
	// RoleOwner is an admin role (i.e. view, edit, create, delete)
	RoleOwner = "owner"
)

// GetAllRoles returns the predefined role names
func GetAllRoles() []string {
	return []string{
		RoleGuest,
		RoleMember,
		RoleEditor,
		RoleAdmin,
		RoleOwner,
	}
}

// IsKnownRole checks if the name is one of the predefined roles
func IsKnownRole(name string) bool {
	return slices.Contains(GetAllRoles(), name)
}

// RoleNames returns the names of the given roles, skipping nil entries.
// The result is never nil.
func RoleNames(roles []*Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == nil {
			continue
		}
		names = append(names, r.Name)
	}
	return names
}
