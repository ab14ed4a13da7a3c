package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cauth/cauth/internal/domain"
)

func TestGroupServiceInsertRequiresKnownPermissions(t *testing.T) {
	ctx := context.Background()
	permissions := newFakePermissionRepo()
	groups := NewGroupService(newFakeGroupRepo(permissions), &fakePublisher{})

	_, err := groups.Insert(ctx, "alice", "editors", "", []string{"docs:edit"})
	assert.ErrorIs(t, err, domain.ErrNameError)

	require.NoError(t, permissions.Insert(ctx, &domain.Permission{Name: "docs:edit"}))
	g, err := groups.Insert(ctx, "alice", "editors", "", []string{"docs:edit"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs:edit"}, g.Permissions)
}

func TestGroupServiceGrantRevoke(t *testing.T) {
	ctx := context.Background()
	permissions := newFakePermissionRepo()
	groupRepo := newFakeGroupRepo(permissions)
	groups := NewGroupService(groupRepo, &fakePublisher{})

	require.NoError(t, permissions.Insert(ctx, &domain.Permission{Name: "docs:edit"}))
	_, err := groups.Insert(ctx, "alice", "editors", "", nil)
	require.NoError(t, err)

	require.NoError(t, groups.GrantPermission(ctx, "alice", "editors", "docs:edit"))
	g, err := groupRepo.Retrieve(ctx, "editors")
	require.NoError(t, err)
	assert.True(t, g.HasPermission("docs:edit"))

	require.NoError(t, groups.RevokePermission(ctx, "alice", "editors", "docs:edit"))
	g, err = groupRepo.Retrieve(ctx, "editors")
	require.NoError(t, err)
	assert.False(t, g.HasPermission("docs:edit"))
}
