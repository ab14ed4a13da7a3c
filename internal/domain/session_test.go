package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionUsable covers P5: OnHold conveys nothing, Active within TTL
// is usable, and expiry/revocation both make it unusable.
func TestSessionUsable(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	onHold := &Session{Status: SessionOnHold, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, onHold.Usable(now))

	active := &Session{Status: SessionActive, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, active.Usable(now))

	expired := &Session{Status: SessionActive, ExpiresAt: now.Add(-time.Second)}
	assert.False(t, expired.Usable(now))

	revoked := &Session{Status: SessionRevoked, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, revoked.Usable(now))
}

func TestSessionActivate(t *testing.T) {
	s := &Session{Status: SessionOnHold}
	s.Activate()
	assert.Equal(t, SessionActive, s.Status)

	s.Revoke()
	assert.Equal(t, SessionRevoked, s.Status)

	// Activate never resurrects a revoked session.
	s.Activate()
	assert.Equal(t, SessionRevoked, s.Status)
}

func TestGenerateSessionTokenUnique(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
