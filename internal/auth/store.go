package auth

import (
	"errors"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
)

// Role is the access level of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGamer Role = "gamer"
)

var (
	// ErrInvalidCredentials is returned when a login fails. It deliberately
	// does not distinguish between an unknown user and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a username, user ID or email is already taken.
	ErrDuplicate = errors.New("username, user ID or email already exists")
	// ErrRegistrationDisabled is returned when registration is attempted while disabled.
	ErrRegistrationDisabled = errors.New("registration is currently disabled")
)

// User is a single user record.
type User struct {
	Username     string
	PasswordHash string
	Role         Role
	UserID       string
	Email        string
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Store is the in-memory credential store. All state is process lifetime only.
type Store struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewStore creates an empty credential store.
func NewStore() *Store {
	return &Store{
		users: make(map[string]User),
	}
}

// Add inserts a user record, failing if the username, user ID or email is
// already taken. Used to seed accounts at startup.
func (s *Store) Add(u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(u.Username, u.UserID, u.Email) {
		return ErrDuplicate
	}
	s.users[u.Username] = u
	return nil
}

// Get returns the user record for the given username.
func (s *Store) Get(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Verify reports whether the username exists and the password matches its
// stored hash. A malformed stored hash counts as a failed verification.
func (s *Store) Verify(username, password string) bool {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	match, err := VerifyPassword(password, u.PasswordHash)
	if err != nil {
		log.Error("failed to verify password hash", "username", username, "error", err)
		return false
	}
	return match
}

// Register creates a new user with the default role. It fails with
// ErrDuplicate if the username, user ID or email is already in use; the
// store is left unchanged in that case.
func (s *Store) Register(username, userID, email, password string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(username, userID, email) {
		return User{}, ErrDuplicate
	}

	u := User{
		Username:     username,
		PasswordHash: hash,
		Role:         RoleUser,
		UserID:       userID,
		Email:        email,
	}
	s.users[username] = u
	return u, nil
}

// Rename moves a user record to a new username. The move happens under a
// single lock acquisition, so no reader can observe both keys missing or
// both present. Renaming to an existing name fails without mutating
// either record.
func (s *Store) Rename(oldUsername, newUsername string) error {
	if oldUsername == newUsername {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[oldUsername]
	if !ok {
		return ErrNotFound
	}
	if _, exists := s.users[newUsername]; exists {
		return ErrDuplicate
	}

	u.Username = newUsername
	s.users[newUsername] = u
	delete(s.users, oldUsername)
	return nil
}

// List returns all user records sorted by username.
func (s *Store) List() []User {
	s.mu.RLock()
	users := lo.Values(s.users)
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users
}

// Len returns the number of registered users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// taken reports whether the username, user ID or email is already in use.
// Caller must hold the lock.
func (s *Store) taken(username, userID, email string) bool {
	if _, ok := s.users[username]; ok {
		return true
	}
	for _, u := range s.users {
		if u.UserID == userID {
			return true
		}
		if email != "" && u.Email == email {
			return true
		}
	}
	return false
}
