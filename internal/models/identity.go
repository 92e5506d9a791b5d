package models

// Identity is who a request acts as. It is either Anonymous or Authenticated;
// callers switch on the concrete type.
type Identity interface {
	isIdentity()
}

// Anonymous is a request without a valid session
type Anonymous struct{}

// Authenticated is a request bound to a live session
type Authenticated struct {
	Session *Session
	// Demo is set for allow-listed demo identities, whose data lives in the sandbox
	Demo bool
}

func (Anonymous) isIdentity()     {}
func (Authenticated) isIdentity() {}

// User returns the session's user snapshot
func (a Authenticated) User() SessionUser {
	return a.Session.User
}

// HasRole reports whether the authenticated user holds one of roles
func (a Authenticated) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Session.User.Role == r {
			return true
		}
	}
	return false
}
