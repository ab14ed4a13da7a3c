package domain

import "encoding/json"

const maxUserLogin = 255

// User is an account identified by a unique login, together with the
// groups it belongs to (loaded separately, as the teacher's Role slice is).
type User struct {
	Login        string
	PasswordHash string // opaque encoding produced by auth.HashPassword; never plaintext (I1)
	Details      json.RawMessage
	Groups       []Group
}

func (u *User) Validate() error {
	if u.Login == "" {
		return ValidationError{Field: "login", Message: "required"}
	}
	if len(u.Login) > maxUserLogin {
		return ValidationError{Field: "login", Message: "must be at most 255 characters"}
	}
	if u.PasswordHash == "" {
		return ValidationError{Field: "password_hash", Message: "required"}
	}
	return nil
}

// HasPermission reports whether any group the user belongs to grants a
// permission authorizing required, per §4.2's matcher. This is the
// "effective permission set" of the glossary.
func (u *User) HasPermission(required string) bool {
	for _, g := range u.Groups {
		if g.HasPermission(required) {
			return true
		}
	}
	return false
}

// GroupNames returns the names of the groups held by the user.
func (u *User) GroupNames() []string {
	names := make([]string, len(u.Groups))
	for i, g := range u.Groups {
		names[i] = g.Name
	}
	return names
}
