package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStoreIssueValidate(t *testing.T) {
	s := NewTokenStore()

	token, err := s.Issue("alice", time.Hour)
	require.NoError(t, err)
	assert.Len(t, token, 64, "token should be 32 random bytes hex encoded")

	username, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestTokenStoreIssue_Unique(t *testing.T) {
	s := NewTokenStore()

	t1, err := s.Issue("alice", time.Hour)
	require.NoError(t, err)
	t2, err := s.Issue("alice", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)
	assert.Equal(t, 2, s.Len())
}

func TestTokenStoreValidate_Unknown(t *testing.T) {
	s := NewTokenStore()
	_, err := s.Validate("deadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenStoreValidate_Expired(t *testing.T) {
	s := NewTokenStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	token, err := s.Issue("alice", time.Hour)
	require.NoError(t, err)

	// Advance past the expiry.
	s.now = func() time.Time { return now.Add(time.Hour + time.Second) }

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 0, s.Len(), "expired token must be deleted on access")

	// Replaying the same token keeps failing even if time moves back.
	s.now = func() time.Time { return now }
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenStoreRevoke(t *testing.T) {
	s := NewTokenStore()

	token, err := s.Issue("alice", time.Hour)
	require.NoError(t, err)

	s.Revoke(token)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Revoking again is a no-op.
	s.Revoke(token)
}

func TestTokenStoreSweep(t *testing.T) {
	s := NewTokenStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	short, err := s.Issue("alice", time.Minute)
	require.NoError(t, err)
	long, err := s.Issue("bob", time.Hour)
	require.NoError(t, err)

	s.now = func() time.Time { return now.Add(30 * time.Minute) }

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	_, err = s.Validate(short)
	assert.ErrorIs(t, err, ErrInvalidToken)
	username, err := s.Validate(long)
	require.NoError(t, err)
	assert.Equal(t, "bob", username)

	// Sweeping again with no new insertions removes nothing.
	assert.Equal(t, 0, s.Sweep())
	assert.Equal(t, 1, s.Len())
}
