package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/storage"
)

func TestPermissionServiceInsertAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newFakePermissionRepo()
	svc := NewPermissionService(repo, &fakePublisher{})

	p, err := svc.Insert(ctx, "alice", "users:get", "list users")
	require.NoError(t, err)
	assert.Equal(t, "users:get", p.Name)

	_, err = svc.Insert(ctx, "alice", "users:get", "duplicate")
	assert.ErrorIs(t, err, domain.ErrNameConflict)

	require.NoError(t, svc.Delete(ctx, "alice", "users:get"))
	assert.ErrorIs(t, svc.Delete(ctx, "alice", "users:get"), domain.ErrNotFound)
}

func TestPermissionServiceList(t *testing.T) {
	ctx := context.Background()
	repo := newFakePermissionRepo()
	svc := NewPermissionService(repo, &fakePublisher{})

	_, err := svc.Insert(ctx, "alice", "a:b", "")
	require.NoError(t, err)
	_, err = svc.Insert(ctx, "alice", "a:c", "")
	require.NoError(t, err)

	list, err := svc.List(ctx, storage.ListPage{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
