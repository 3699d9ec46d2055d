package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Auth    AuthConfig    `mapstructure:"auth" validate:"required"`
	Session SessionConfig `mapstructure:"session" validate:"required"`
	Scan    ScanConfig    `mapstructure:"scan" validate:"required"`
	Invite  InviteConfig  `mapstructure:"invite" validate:"required"`
	Client  ClientConfig  `mapstructure:"client" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// ShutdownTimeoutSeconds bounds graceful shutdown of HTTP requests and sessions.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`

	// AllowedOrigins are the origin prefixes accepted for progress websockets.
	// Requests without an Origin header are always accepted.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig contains the settings of the signed session tokens handed to clients.
type AuthConfig struct {
	SessionTokenSecret   string `mapstructure:"session_token_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// SessionConfig bounds the session registry.
type SessionConfig struct {
	MaxSessions int `mapstructure:"max_sessions" validate:"gte=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`
	// IdleTimeoutMinutes frees sessions unused for this long; 0 keeps them.
	IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes" validate:"gte=0"`
}

// ScanConfig contains eligibility scanner settings.
type ScanConfig struct {
	DefaultMaxMessages int `mapstructure:"default_max_messages" validate:"gte=0"`
	RecencyWindowDays  int `mapstructure:"recency_window_days" validate:"required,gt=0"`
	// MaxParallelGroups limits concurrent source group reads; 0 means unbounded.
	MaxParallelGroups int `mapstructure:"max_parallel_groups" validate:"gte=0"`
}

// InviteConfig contains background invite job settings.
type InviteConfig struct {
	BatchSize              int `mapstructure:"batch_size" validate:"required,gt=0"`
	BatchPauseSeconds      int `mapstructure:"batch_pause_seconds" validate:"gte=0"`
	MaxAttempts            int `mapstructure:"max_attempts" validate:"required,gt=0"`
	RetryBackoffSeconds    int `mapstructure:"retry_backoff_seconds" validate:"gte=0"`
	FailureCooldownSeconds int `mapstructure:"failure_cooldown_seconds" validate:"gte=0"`
	DefaultDelayMin        int `mapstructure:"default_delay_min" validate:"gte=0"`
	DefaultDelayMax        int `mapstructure:"default_delay_max" validate:"gtefield=DefaultDelayMin"`
}

// ClientConfig selects and tunes the messaging platform driver.
type ClientConfig struct {
	Driver            string  `mapstructure:"driver" validate:"required,oneof=memory"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
	// LoginCode is the verification code accepted by the memory driver.
	LoginCode string `mapstructure:"login_code"`
	// SeedFile optionally populates the memory driver with users and groups.
	SeedFile string `mapstructure:"seed_file"`
}

// ShutdownTimeout returns the graceful shutdown bound as a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// TokenLifetime returns the session token lifetime as a duration.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// IdleTimeout returns the session idle timeout as a duration.
func (c SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

// RecencyWindow returns the scan recency window as a duration.
func (c ScanConfig) RecencyWindow() time.Duration {
	return time.Duration(c.RecencyWindowDays) * 24 * time.Hour
}
