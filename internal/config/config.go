package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config holds the configuration for the GamePortal server.
type Config struct {
	// Listen is the address the server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// SessionKey is the key used to sign session cookies.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionMaxAge is the maximum age of a session in seconds.
	SessionMaxAge int `yaml:"session_max_age" mapstructure:"session_max_age"`
	// SecureCookies sets the Secure flag on all cookies. Enable behind TLS.
	SecureCookies bool `yaml:"secure_cookies" mapstructure:"secure_cookies"`
	// RememberTokenDays is the lifetime of a remember-me token in days.
	RememberTokenDays int `yaml:"remember_token_days" mapstructure:"remember_token_days"`
	// TokenSweepInterval is the interval between persistent token sweeps.
	TokenSweepInterval time.Duration `yaml:"token_sweep_interval" mapstructure:"token_sweep_interval"`
	// PresenceSweepInterval is the interval between active user sweeps.
	PresenceSweepInterval time.Duration `yaml:"presence_sweep_interval" mapstructure:"presence_sweep_interval"`

	// Auth holds the authentication configuration.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`
	// Settings holds the initial values for the mutable server settings.
	Settings *SettingsConfig `yaml:"settings" mapstructure:"settings"`
}

// AuthConfig holds the authentication configuration.
type AuthConfig struct {
	// BootstrapAdmin is the username of the admin account created at startup
	// when no seed users are configured.
	BootstrapAdmin string `yaml:"bootstrap_admin" mapstructure:"bootstrap_admin"`
	// BootstrapPassword is the password for the bootstrap admin account.
	BootstrapPassword string `yaml:"bootstrap_password" mapstructure:"bootstrap_password"`
	// Users is a list of seed users loaded into the credential store at startup.
	Users []*SeedUser `yaml:"users" mapstructure:"users"`
}

// SeedUser describes a user record seeded from the config file.
type SeedUser struct {
	// Username is the unique login name.
	Username string `yaml:"username" mapstructure:"username"`
	// PasswordHash is an argon2id hash in PHC format (generate with "gameportal hash").
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
	// Role is the user role (admin, user, gamer).
	Role string `yaml:"role" mapstructure:"role"`
	// UserID is the unique user ID.
	UserID string `yaml:"user_id" mapstructure:"user_id"`
	// Email is the optional email address.
	Email string `yaml:"email" mapstructure:"email"`
}

// SettingsConfig holds the initial values for the admin-mutable server settings.
type SettingsConfig struct {
	// UserTimeout is the active user timeout in seconds.
	UserTimeout int `yaml:"user_timeout" mapstructure:"user_timeout"`
	// HeartbeatInterval is the client heartbeat interval in seconds.
	HeartbeatInterval int `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	// MaxUsers is the maximum number of concurrent users.
	MaxUsers int `yaml:"max_users" mapstructure:"max_users"`
	// MaintenanceMode blocks non-admin access when enabled.
	MaintenanceMode bool `yaml:"maintenance_mode" mapstructure:"maintenance_mode"`
	// RegistrationEnabled controls whether new registrations are accepted.
	RegistrationEnabled bool `yaml:"registration_enabled" mapstructure:"registration_enabled"`
	// DebugMode enables verbose request logging.
	DebugMode bool `yaml:"debug_mode" mapstructure:"debug_mode"`
	// ServerName is the display name of the server.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("GAMEPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gameportal")
		v.AddConfigPath("/etc/gameportal")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file is found, use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
		log.Debug("Environment variables with GAMEPORTAL_ prefix will override config file values")
	}

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3003")
	v.SetDefault("session_max_age", 3600)
	v.SetDefault("secure_cookies", false)
	v.SetDefault("remember_token_days", 30)
	v.SetDefault("token_sweep_interval", time.Hour)
	v.SetDefault("presence_sweep_interval", 10*time.Second)

	// Auth defaults
	v.SetDefault("auth.bootstrap_admin", "admin")
	v.SetDefault("auth.bootstrap_password", "")

	// Initial server settings
	v.SetDefault("settings.user_timeout", 30)
	v.SetDefault("settings.heartbeat_interval", 15)
	v.SetDefault("settings.max_users", 100)
	v.SetDefault("settings.maintenance_mode", false)
	v.SetDefault("settings.registration_enabled", true)
	v.SetDefault("settings.debug_mode", false)
	v.SetDefault("settings.server_name", "GAME SERVER")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing gameportal config")
	}

	if c.SessionKey == "" {
		return fmt.Errorf("session_key is required")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("session_max_age must be positive")
	}
	if c.RememberTokenDays <= 0 {
		return fmt.Errorf("remember_token_days must be positive")
	}
	if c.TokenSweepInterval <= 0 {
		return fmt.Errorf("token_sweep_interval must be positive")
	}
	if c.PresenceSweepInterval <= 0 {
		return fmt.Errorf("presence_sweep_interval must be positive")
	}

	if c.Auth == nil {
		return fmt.Errorf("missing auth config")
	}
	if len(c.Auth.Users) == 0 && c.Auth.BootstrapPassword == "" {
		log.Warn("No seed users and no bootstrap password configured, only registered users will be able to log in")
	}
	for _, u := range c.Auth.Users {
		if u.Username == "" {
			return fmt.Errorf("seed user is missing a username")
		}
		if u.PasswordHash == "" {
			return fmt.Errorf("seed user %q is missing a password hash", u.Username)
		}
	}

	if c.Settings == nil {
		return fmt.Errorf("missing settings config")
	}
	if c.Settings.UserTimeout <= 0 {
		return fmt.Errorf("settings.user_timeout must be positive")
	}
	if c.Settings.HeartbeatInterval <= 0 {
		return fmt.Errorf("settings.heartbeat_interval must be positive")
	}

	return nil
}

// RememberTokenTTL returns the remember-me token lifetime as a duration.
func (c *Config) RememberTokenTTL() time.Duration {
	return time.Duration(c.RememberTokenDays) * 24 * time.Hour
}
