package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cauth/cauth/internal/domain"
)

func TestUserServiceInsertHashesPassword(t *testing.T) {
	ctx := context.Background()
	permissions := newFakePermissionRepo()
	groups := newFakeGroupRepo(permissions)
	userRepo := newFakeUserRepo(groups)
	users := NewUserService(userRepo, &fakePublisher{})

	u, err := users.Insert(ctx, "root", "alice", "hunter2", nil)
	require.NoError(t, err)
	assert.NotContains(t, u.PasswordHash, "hunter2")

	_, err = users.Insert(ctx, "root", "alice", "hunter2", nil)
	assert.ErrorIs(t, err, domain.ErrNameConflict)
}

func TestUserServiceAuthenticateReportsEachFailureMode(t *testing.T) {
	ctx := context.Background()
	permissions := newFakePermissionRepo()
	groups := newFakeGroupRepo(permissions)
	userRepo := newFakeUserRepo(groups)
	users := NewUserService(userRepo, &fakePublisher{})

	_, err := users.Insert(ctx, "root", "alice", "hunter2", nil)
	require.NoError(t, err)

	_, err = users.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = users.Authenticate(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	u, err := users.Authenticate(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Login)
}

func TestUserServiceGrantRevokeGroup(t *testing.T) {
	ctx := context.Background()
	permissions := newFakePermissionRepo()
	groups := newFakeGroupRepo(permissions)
	userRepo := newFakeUserRepo(groups)
	users := NewUserService(userRepo, &fakePublisher{})

	require.NoError(t, permissions.Insert(ctx, &domain.Permission{Name: "docs:edit"}))
	require.NoError(t, groups.Insert(ctx, &domain.Group{Name: "editors", Permissions: []string{"docs:edit"}}))
	_, err := users.Insert(ctx, "root", "alice", "hunter2", nil)
	require.NoError(t, err)

	ok, err := users.HasPermission(ctx, "alice", "docs:edit")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, users.GrantGroup(ctx, "root", "alice", "editors"))
	ok, err = users.HasPermission(ctx, "alice", "docs:edit")
	require.NoError(t, err)
	assert.True(t, ok)

	u, err := users.Retrieve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"editors"}, u.GroupNames())

	require.NoError(t, users.RevokeGroup(ctx, "root", "alice", "editors"))
	ok, err = users.HasPermission(ctx, "alice", "docs:edit")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserServiceDelete(t *testing.T) {
	ctx := context.Background()
	permissions := newFakePermissionRepo()
	groups := newFakeGroupRepo(permissions)
	userRepo := newFakeUserRepo(groups)
	users := NewUserService(userRepo, &fakePublisher{})

	_, err := users.Insert(ctx, "root", "alice", "hunter2", nil)
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, "root", "alice"))
	_, err = users.Retrieve(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
