package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cauth/cauth/internal/domain"
)

// SessionRepository implements storage.SessionRepository.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create draws a token from domain.GenerateSessionToken and stores it with
// the given status and ttl (§4.6).
func (r *SessionRepository) Create(ctx context.Context, userLogin string, status domain.SessionStatus, ttl time.Duration) (*domain.Session, error) {
	token, err := domain.GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		Token:     token,
		UserLogin: userLogin,
		Status:    status,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}

	db := getDB(ctx, r.pool)
	_, err = db.Exec(ctx, `
		INSERT INTO login_sessions (token, user_login, status, expires_at)
		VALUES ($1, $2, $3, $4)`,
		session.Token, session.UserLogin, session.Status, session.ExpiresAt)
	if err != nil {
		return nil, mapError(err)
	}
	return session, nil
}

func (r *SessionRepository) Retrieve(ctx context.Context, token string) (*domain.Session, error) {
	db := getDB(ctx, r.pool)
	return r.scan(db.QueryRow(ctx, `
		SELECT token, user_login, status, expires_at FROM login_sessions WHERE token = $1`, token))
}

// Activate transitions OnHold -> Active; no-op if already Active.
func (r *SessionRepository) Activate(ctx context.Context, token string) error {
	db := getDB(ctx, r.pool)

	result, err := db.Exec(ctx, `
		UPDATE login_sessions SET status = $1
		WHERE token = $2 AND status IN ($1, $3)`,
		domain.SessionActive, token, domain.SessionOnHold)
	if err != nil {
		return mapError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) Revoke(ctx context.Context, token string) error {
	db := getDB(ctx, r.pool)

	result, err := db.Exec(ctx, `
		UPDATE login_sessions SET status = $1 WHERE token = $2`,
		domain.SessionRevoked, token)
	if err != nil {
		return mapError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// HasPermission returns false when the token is absent, expired, Revoked,
// or OnHold (I4). Otherwise it loads the session's user and delegates to
// the UserRepository's matcher.
func (r *SessionRepository) HasPermission(ctx context.Context, token, required string) (bool, error) {
	session, err := r.Retrieve(ctx, token)
	if err != nil {
		return false, nil
	}
	if !session.Usable(time.Now().UTC()) {
		return false, nil
	}

	users := NewUserRepository(r.pool)
	return users.HasPermission(ctx, session.UserLogin, required)
}

func (r *SessionRepository) scan(row scannable) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.Token, &s.UserLogin, &s.Status, &s.ExpiresAt); err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}
