package enums

// Role is the coarse access level carried in access tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// RoleFor maps the users.is_admin flag onto a Role.
func RoleFor(isAdmin bool) Role {
	if isAdmin {
		return RoleAdmin
	}
	return RoleUser
}

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}
