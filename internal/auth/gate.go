package auth

// Gate is the static admin credential check guarding the settings surface.
// It is a UI gate, not a security boundary: a plain equality check against
// two configured strings.
type Gate struct {
	Username string
	Password string
}

// Check reports whether the supplied credentials match exactly.
func (g Gate) Check(username, password string) bool {
	return username == g.Username && password == g.Password
}
