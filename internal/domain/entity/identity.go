package entity

// Identity is the authenticated subject of a request. It is rebuilt from a
// verified token on every request and never stored server-side.
type Identity struct {
	ID    int64
	Email string
	Role  Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
