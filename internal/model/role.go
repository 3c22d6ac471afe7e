package model

// Role is the portal role stored on users.role and in the session.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// ViewerRoles lists the roles allowed to open handouts.
var ViewerRoles = []Role{RoleStudent, RoleInstructor}

// Valid reports whether r may view handouts.
func (r Role) Valid() bool {
	for _, allowed := range ViewerRoles {
		if r == allowed {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
