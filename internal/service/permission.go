package service

import (
	"context"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/event"
	"github.com/cauth/cauth/internal/storage"
)

// PermissionService implements C3 on top of a PermissionRepository.
type PermissionService struct {
	permissions storage.PermissionRepository
	publisher   event.Publisher
}

func NewPermissionService(permissions storage.PermissionRepository, publisher event.Publisher) *PermissionService {
	return &PermissionService{permissions: permissions, publisher: publisher}
}

func (s *PermissionService) List(ctx context.Context, page storage.ListPage) ([]domain.Permission, error) {
	return s.permissions.List(ctx, page)
}

func (s *PermissionService) Retrieve(ctx context.Context, name string) (*domain.Permission, error) {
	return s.permissions.Retrieve(ctx, name)
}

func (s *PermissionService) Insert(ctx context.Context, actorLogin, name, description string) (*domain.Permission, error) {
	perm, err := domain.NewPermission(name, description)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Insert(ctx, perm); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.PermissionInsertedEvent(actorLogin, perm))
	return perm, nil
}

func (s *PermissionService) Delete(ctx context.Context, actorLogin, name string) error {
	if err := s.permissions.Delete(ctx, name); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.PermissionDeletedEvent(actorLogin, name))
	return nil
}
