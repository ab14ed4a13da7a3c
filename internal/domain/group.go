package domain

const (
	maxGroupName        = 255
	maxGroupDescription = 3000
)

// Group is a named bundle of permissions, held by zero or more users.
type Group struct {
	Name        string
	Description string
	Permissions []string // permission names granted to this group
}

// NewGroup validates and constructs a Group with an initial permission set.
func NewGroup(name, description string, initialPermissions []string) (*Group, error) {
	g := &Group{Name: name, Description: description, Permissions: initialPermissions}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Group) Validate() error {
	if g.Name == "" {
		return ValidationError{Field: "name", Message: "required"}
	}
	if len(g.Name) > maxGroupName {
		return ValidationError{Field: "name", Message: "must be at most 255 characters"}
	}
	if len(g.Description) > maxGroupDescription {
		return ValidationError{Field: "description", Message: "must be at most 3000 characters"}
	}
	return nil
}

// HasPermission reports whether the group's own grants authorize required,
// per the matcher in §4.2.
func (g *Group) HasPermission(required string) bool {
	for _, granted := range g.Permissions {
		if Matches(granted, required) {
			return true
		}
	}
	return false
}
