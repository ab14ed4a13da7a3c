package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// sessionTokenBytes yields at least 128 bits of entropy per §3; 32 bytes
// gives 256, matching the margin mvaleed-aegis/internal/domain/token.go
// takes for refresh tokens.
const sessionTokenBytes = 32

type SessionStatus string

const (
	SessionOnHold  SessionStatus = "on_hold"
	SessionActive  SessionStatus = "active"
	SessionRevoked SessionStatus = "revoked"
)

// Session is an opaque token bound to a user and a status. OnHold sessions
// exist only to hand back an identifier from an uncommitted UserLogin event
// and must never authorize anything (I4).
type Session struct {
	Token     string
	UserLogin string
	Status    SessionStatus
	ExpiresAt time.Time
}

// GenerateSessionToken draws sessionTokenBytes from crypto/rand and
// base64url-encodes them. Tokens are primary keys, not MACs, so constant-time
// comparison on lookup is unnecessary (§9).
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(buf), nil
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Usable reports whether the session may be delegated to for a permission
// check: Active, not Revoked, and not expired.
func (s *Session) Usable(now time.Time) bool {
	return s.Status == SessionActive && !s.IsExpired(now)
}

func (s *Session) Activate() {
	if s.Status == SessionOnHold {
		s.Status = SessionActive
	}
}

func (s *Session) Revoke() {
	s.Status = SessionRevoked
}
