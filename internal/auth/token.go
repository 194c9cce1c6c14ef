package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
)

// tokenBytes is the entropy of a remember-me token. The resulting token is a
// 64 character hex string.
const tokenBytes = 32

// ErrInvalidToken is returned when a token is unknown, expired or revoked.
// Expired tokens are not surfaced differently to the caller.
var ErrInvalidToken = errors.New("invalid or expired token")

// persistentToken binds a remember-me token to a username with an expiry.
type persistentToken struct {
	Username  string
	ExpiresAt time.Time
}

// TokenStore holds the long-lived remember-me tokens. Tokens expire lazily on
// access and in bulk through Sweep, which the token janitor runs periodically.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]persistentToken

	// now is swappable for tests.
	now func() time.Time
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]persistentToken),
		now:    time.Now,
	}
}

// Issue generates a cryptographically random token bound to the username,
// valid for ttl. The returned token is the cookie value.
func (s *TokenStore) Issue(username string, ttl time.Duration) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = persistentToken{
		Username:  username,
		ExpiresAt: s.now().Add(ttl),
	}
	return token, nil
}

// Validate returns the username bound to the token if it exists and has not
// expired. An expired token is deleted as a side effect, so a replay of the
// same token keeps failing.
func (s *TokenStore) Validate(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return "", ErrInvalidToken
	}
	if !t.ExpiresAt.After(s.now()) {
		delete(s.tokens, token)
		return "", ErrInvalidToken
	}
	return t.Username, nil
}

// Revoke deletes the token unconditionally. Used on logout.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Sweep replaces the token map with the subset that has not expired and
// returns the number of tokens removed. The new map is built first and
// swapped in under the lock, so readers never observe a partial sweep.
func (s *TokenStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := lo.PickBy(s.tokens, func(_ string, t persistentToken) bool {
		return t.ExpiresAt.After(now)
	})
	removed := len(s.tokens) - len(kept)
	s.tokens = kept
	return removed
}

// Len returns the number of stored tokens.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
