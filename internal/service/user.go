package service

import (
	"context"
	"encoding/json"

	"github.com/cauth/cauth/internal/auth"
	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/event"
	"github.com/cauth/cauth/internal/storage"
)

// UserService implements C5 on top of a UserRepository.
type UserService struct {
	users     storage.UserRepository
	publisher event.Publisher
}

func NewUserService(users storage.UserRepository, publisher event.Publisher) *UserService {
	return &UserService{users: users, publisher: publisher}
}

func (s *UserService) List(ctx context.Context, page storage.ListPage) ([]domain.User, error) {
	return s.users.List(ctx, page)
}

func (s *UserService) Retrieve(ctx context.Context, login string) (*domain.User, error) {
	return s.users.Retrieve(ctx, login)
}

// Insert hashes password via C1 then stores the row (§4.5).
func (s *UserService) Insert(ctx context.Context, actorLogin, login, password string, details json.RawMessage) (*domain.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, domain.ErrHash
	}

	user := &domain.User{Login: login, PasswordHash: hash, Details: details}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.UserInsertedEvent(actorLogin, user))
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actorLogin, login string) error {
	if err := s.users.Delete(ctx, login); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.UserDeletedEvent(actorLogin, login))
	return nil
}

// Authenticate retrieves and verifies credentials. It returns ErrNotFound
// for an unknown login and ErrInvalidCredentials for a wrong password; the
// HTTP login handler folds both into one response (§4.5, §7).
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	return s.users.Authenticate(ctx, login, password)
}

func (s *UserService) GrantGroup(ctx context.Context, actorLogin, login, group string) error {
	if err := s.users.GrantGroup(ctx, login, group); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.UserGroupGrantedEvent(actorLogin, login, group))
	return nil
}

func (s *UserService) RevokeGroup(ctx context.Context, actorLogin, login, group string) error {
	if err := s.users.RevokeGroup(ctx, login, group); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.UserGroupRevokedEvent(actorLogin, login, group))
	return nil
}

func (s *UserService) HasPermission(ctx context.Context, login, required string) (bool, error) {
	return s.users.HasPermission(ctx, login, required)
}
