package model

// Session is the per-user state written at login and read on every handout
// request. Email and names are a cache of the users row.
type Session struct {
	UserID    int
	Role      Role
	Email     string
	FirstName string
	LastName  string
}

// Identity returns the cached display identity.
func (s *Session) Identity() Identity {
	if s == nil {
		return Identity{}
	}
	return Identity{FirstName: s.FirstName, LastName: s.LastName, Email: s.Email}
}
