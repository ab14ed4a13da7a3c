package service

import (
	"context"
	"time"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/event"
	"github.com/cauth/cauth/internal/storage"
)

// SessionService implements C6 on top of a SessionRepository.
type SessionService struct {
	sessions  storage.SessionRepository
	publisher event.Publisher
	ttl       time.Duration
}

func NewSessionService(sessions storage.SessionRepository, publisher event.Publisher, ttl time.Duration) *SessionService {
	return &SessionService{sessions: sessions, publisher: publisher, ttl: ttl}
}

func (s *SessionService) Create(ctx context.Context, actorLogin, userLogin string, status domain.SessionStatus) (*domain.Session, error) {
	session, err := s.sessions.Create(ctx, userLogin, status, s.ttl)
	if err != nil {
		return nil, err
	}
	_ = s.publisher.Publish(ctx, domain.SessionCreatedEvent(actorLogin, userLogin, status))
	return session, nil
}

func (s *SessionService) Retrieve(ctx context.Context, token string) (*domain.Session, error) {
	return s.sessions.Retrieve(ctx, token)
}

func (s *SessionService) Activate(ctx context.Context, token string) error {
	session, err := s.sessions.Retrieve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Activate(ctx, token); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.SessionActivatedEvent("", session.UserLogin))
	return nil
}

func (s *SessionService) Revoke(ctx context.Context, actorLogin, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, domain.SessionRevokedEvent(actorLogin, token))
	return nil
}

// HasPermission returns false for absent, expired, Revoked, or OnHold
// sessions (I4), otherwise delegates to the user's effective permissions.
func (s *SessionService) HasPermission(ctx context.Context, token, required string) (bool, error) {
	return s.sessions.HasPermission(ctx, token, required)
}
