// Package settings holds the admin-mutable server settings.
package settings

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gameportal/gameportal/internal/config"
)

// ErrInvalidInput is returned when a settings update contains out-of-range
// values. The settings are left unchanged.
var ErrInvalidInput = errors.New("invalid settings input")

// Settings is a snapshot of the global server settings.
type Settings struct {
	// UserTimeout is how long an active user entry lives without a heartbeat, in seconds.
	UserTimeout int `json:"user_timeout"`
	// HeartbeatInterval is how often clients should poll the heartbeat endpoint, in seconds.
	HeartbeatInterval int `json:"heartbeat_interval"`
	// MaxUsers is the maximum number of concurrent users.
	MaxUsers int `json:"max_users"`
	// MaintenanceMode blocks non-admin access when enabled.
	MaintenanceMode bool `json:"maintenance_mode"`
	// RegistrationEnabled controls whether new registrations are accepted.
	RegistrationEnabled bool `json:"registration_enabled"`
	// DebugMode enables verbose request logging.
	DebugMode bool `json:"debug_mode"`
	// ServerName is the display name of the server.
	ServerName string `json:"server_name"`
}

// Validate checks the settings for out-of-range values.
func (s Settings) Validate() error {
	if s.UserTimeout <= 0 {
		return fmt.Errorf("%w: user_timeout must be positive", ErrInvalidInput)
	}
	if s.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive", ErrInvalidInput)
	}
	if s.MaxUsers <= 0 {
		return fmt.Errorf("%w: max_users must be positive", ErrInvalidInput)
	}
	if s.ServerName == "" {
		return fmt.Errorf("%w: server_name must not be empty", ErrInvalidInput)
	}
	return nil
}

// UserTimeoutDuration returns the active user timeout as a duration.
func (s Settings) UserTimeoutDuration() time.Duration {
	return time.Duration(s.UserTimeout) * time.Second
}

// Store guards the mutable settings. Readers get a snapshot; the presence
// janitor reads a fresh snapshot each cycle, so an update takes effect on the
// next cycle, not retroactively.
type Store struct {
	mu      sync.RWMutex
	current Settings
}

// NewStore creates a settings store initialized from the config.
func NewStore(cfg *config.SettingsConfig) *Store {
	return &Store{
		current: Settings{
			UserTimeout:         cfg.UserTimeout,
			HeartbeatInterval:   cfg.HeartbeatInterval,
			MaxUsers:            cfg.MaxUsers,
			MaintenanceMode:     cfg.MaintenanceMode,
			RegistrationEnabled: cfg.RegistrationEnabled,
			DebugMode:           cfg.DebugMode,
			ServerName:          cfg.ServerName,
		},
	}
}

// Get returns a snapshot of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and applies new settings. On validation failure the
// current settings are left unchanged.
func (s *Store) Update(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	return nil
}
