package domain

import "strings"

const (
	maxPermissionName        = 255
	maxPermissionDescription = 3000
)

// Permission is a named capability. Names are colon-delimited identifiers;
// a trailing segment may be a resource instance (e.g. "users:delete:alice").
// Matching against a required permission is done by Matches, not here.
type Permission struct {
	Name        string
	Description string
}

// NewPermission validates and constructs a Permission.
func NewPermission(name, description string) (*Permission, error) {
	p := &Permission{Name: name, Description: description}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Permission) Validate() error {
	if p.Name == "" {
		return ValidationError{Field: "name", Message: "required"}
	}
	if len(p.Name) > maxPermissionName {
		return ValidationError{Field: "name", Message: "must be at most 255 characters"}
	}
	if len(p.Description) > maxPermissionDescription {
		return ValidationError{Field: "description", Message: "must be at most 3000 characters"}
	}
	return nil
}

// Segments splits a permission name on ':'.
func (p *Permission) Segments() []string {
	return strings.Split(p.Name, ":")
}

// Matches reports whether granted permission g authorizes required
// permission r, per spec.md §4.2:
//
//   - g == r (exact match), or
//   - r has exactly one more trailing segment than g, every shared segment
//     is byte-equal, and the extra segment in r is non-empty (a resource
//     instance).
//
// Comparison is byte-wise: no Unicode folding, no case folding (I5).
func Matches(granted, required string) bool {
	if granted == required {
		return true
	}

	g := strings.Split(granted, ":")
	r := strings.Split(required, ":")

	if len(r) != len(g)+1 {
		return false
	}
	for i, seg := range g {
		if seg != r[i] {
			return false
		}
	}
	return r[len(r)-1] != ""
}
