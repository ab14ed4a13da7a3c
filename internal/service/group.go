package service

import (
	"context"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/event"
	"github.com/cauth/cauth/internal/storage"
)

// GroupService implements C4 on top of a GroupRepository.
type GroupService struct {
	groups    storage.GroupRepository
	publisher event.Publisher
}

func NewGroupService(groups storage.GroupRepository, publisher event.Publisher) *GroupService {
	return &GroupService{groups: groups, publisher: publisher}
}

func (s *GroupService) List(ctx context.Context, page storage.ListPage) ([]domain.Group, error) {
	return s.groups.List(ctx, page)
}

func (s *GroupService) Retrieve(ctx context.Context, name string) (*domain.Group, error) {
	return s.groups.Retrieve(ctx, name)
}

func (s *GroupService) Insert(ctx context.Context, actorLogin, name, description string, initialPermissions []string) (*domain.Group, error) {
	group, err := domain.NewGroup(name, description, initialPermissions)
	if err != nil {
		return nil, err
	}
	if err := s.groups.Insert(ctx, group); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.GroupInsertedEvent(actorLogin, group))
	return group, nil
}

func (s *GroupService) Delete(ctx context.Context, actorLogin, name string) error {
	if err := s.groups.Delete(ctx, name); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.GroupDeletedEvent(actorLogin, name))
	return nil
}

func (s *GroupService) GrantPermission(ctx context.Context, actorLogin, group, permission string) error {
	if err := s.groups.GrantPermission(ctx, group, permission); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.GroupPermissionGrantedEvent(actorLogin, group, permission))
	return nil
}

func (s *GroupService) RevokePermission(ctx context.Context, actorLogin, group, permission string) error {
	if err := s.groups.RevokePermission(ctx, group, permission); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.GroupPermissionRevokedEvent(actorLogin, group, permission))
	return nil
}
