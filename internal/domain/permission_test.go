package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMatches covers P2.
func TestMatches(t *testing.T) {
	assert.True(t, Matches("a:b", "a:b"))
	assert.True(t, Matches("a:b", "a:b:x"))
	assert.False(t, Matches("a:b:x", "a:b"))
	assert.False(t, Matches("a:b", "a:c:x"))
	assert.False(t, Matches("a:b", "a:b:"))
	assert.False(t, Matches("a:b", "a:b:x:y"))
}

func TestMatchesCaseSensitive(t *testing.T) {
	assert.False(t, Matches("a:B", "a:b"))
}

func TestPermissionValidate(t *testing.T) {
	_, err := NewPermission("", "desc")
	assert.Error(t, err)

	p, err := NewPermission("users:get", "list users")
	assert.NoError(t, err)
	assert.Equal(t, []string{"users", "get"}, p.Segments())
}
