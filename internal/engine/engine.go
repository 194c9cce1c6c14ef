// Package engine wires the credential store, token store, presence tracker
// and settings together and owns the background janitors.
package engine

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gameportal/gameportal/internal/auth"
	"github.com/gameportal/gameportal/internal/config"
	"github.com/gameportal/gameportal/internal/presence"
	"github.com/gameportal/gameportal/internal/scheduler"
	"github.com/gameportal/gameportal/internal/settings"
)

// Engine owns the shared in-memory state and the janitor jobs.
type Engine struct {
	cfg       *config.Config
	users     *auth.Store
	tokens    *auth.TokenStore
	presence  *presence.Tracker
	settings  *settings.Store
	scheduler *scheduler.Scheduler
}

// New creates the engine, seeds the credential store and registers the
// janitor jobs.
func New(cfg *config.Config) (*Engine, error) {
	sched, err := scheduler.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		users:     auth.NewStore(),
		tokens:    auth.NewTokenStore(),
		presence:  presence.NewTracker(),
		settings:  settings.NewStore(cfg.Settings),
		scheduler: sched,
	}

	if err := e.seedUsers(); err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	if err := e.setupJobs(); err != nil {
		return nil, fmt.Errorf("failed to set up jobs: %w", err)
	}

	return e, nil
}

// Run starts the janitors and blocks until the context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.scheduler.Start()

	<-ctx.Done()
	return nil
}

// Close stops the scheduler and waits for running sweeps to finish.
func (e *Engine) Close() error {
	return e.scheduler.Stop()
}

// Users returns the credential store.
func (e *Engine) Users() *auth.Store {
	return e.users
}

// Settings returns the settings store.
func (e *Engine) Settings() *settings.Store {
	return e.settings
}

// Scheduler returns the job scheduler for admin introspection.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Authenticate reports whether the credentials match a registered user.
func (e *Engine) Authenticate(username, password string) bool {
	return e.users.Verify(username, password)
}

// RegisterUser creates a new user account, unless registration is disabled.
// The user ID is generated when the submitted one is empty.
func (e *Engine) RegisterUser(username, userID, email, password string) (auth.User, error) {
	if !e.settings.Get().RegistrationEnabled {
		return auth.User{}, auth.ErrRegistrationDisabled
	}
	if userID == "" {
		userID = uuid.New().String()
	}
	return e.users.Register(username, userID, email, password)
}

// IssueRememberToken creates a remember-me token for the user with the
// configured lifetime.
func (e *Engine) IssueRememberToken(username string) (string, error) {
	return e.tokens.Issue(username, e.cfg.RememberTokenTTL())
}

// CheckRememberToken returns the username bound to a valid remember-me token.
func (e *Engine) CheckRememberToken(token string) (string, error) {
	return e.tokens.Validate(token)
}

// RevokeRememberToken deletes a remember-me token.
func (e *Engine) RevokeRememberToken(token string) {
	e.tokens.Revoke(token)
}

// RecordHeartbeat refreshes the presence entry for the user and returns the
// current active user count.
func (e *Engine) RecordHeartbeat(username string) int {
	e.presence.Touch(username)
	return e.presence.Count()
}

// ActiveCount returns the current active user count.
func (e *Engine) ActiveCount() int {
	return e.presence.Count()
}

// ResetPresence drops all presence entries.
func (e *Engine) ResetPresence() {
	e.presence.Reset()
}

// TokenCount returns the number of live remember-me tokens.
func (e *Engine) TokenCount() int {
	return e.tokens.Len()
}

// setupJobs registers the two janitor jobs.
func (e *Engine) setupJobs() error {
	if err := e.scheduler.AddJob(
		"token_janitor",
		"Persistent Token Janitor",
		e.cfg.TokenSweepInterval,
		e.sweepTokens,
	); err != nil {
		return fmt.Errorf("failed to add token janitor: %w", err)
	}

	if err := e.scheduler.AddJob(
		"presence_janitor",
		"Presence Janitor",
		e.cfg.PresenceSweepInterval,
		e.sweepPresence,
	); err != nil {
		return fmt.Errorf("failed to add presence janitor: %w", err)
	}

	log.Info("janitor jobs configured")
	return nil
}

// sweepTokens removes expired remember-me tokens.
func (e *Engine) sweepTokens(_ context.Context) error {
	if removed := e.tokens.Sweep(); removed > 0 {
		log.Info("removed expired tokens", "count", removed)
	}
	return nil
}

// sweepPresence removes stale presence entries. The timeout setting is read
// fresh each cycle, so a settings change applies on the next cycle.
func (e *Engine) sweepPresence(_ context.Context) error {
	timeout := e.settings.Get().UserTimeoutDuration()
	if removed := e.presence.Sweep(timeout); removed > 0 {
		log.Debug("removed inactive users", "count", removed, "timeout", timeout)
	}
	return nil
}

// seedUsers loads the configured seed users, or a bootstrap admin account
// when none are configured.
func (e *Engine) seedUsers() error {
	for _, u := range e.cfg.Auth.Users {
		userID := u.UserID
		if userID == "" {
			userID = uuid.New().String()
		}
		role := auth.Role(u.Role)
		if role == "" {
			role = auth.RoleUser
		}
		if err := e.users.Add(auth.User{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         role,
			UserID:       userID,
			Email:        u.Email,
		}); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		log.Debug("seeded user", "username", u.Username, "role", role)
	}

	if len(e.cfg.Auth.Users) == 0 && e.cfg.Auth.BootstrapPassword != "" {
		hash, err := auth.HashPassword(e.cfg.Auth.BootstrapPassword)
		if err != nil {
			return fmt.Errorf("failed to hash bootstrap password: %w", err)
		}
		if err := e.users.Add(auth.User{
			Username:     e.cfg.Auth.BootstrapAdmin,
			PasswordHash: hash,
			Role:         auth.RoleAdmin,
			UserID:       uuid.New().String(),
		}); err != nil {
			return fmt.Errorf("failed to create bootstrap admin: %w", err)
		}
		log.Info("created bootstrap admin account", "username", e.cfg.Auth.BootstrapAdmin)
	}

	return nil
}
