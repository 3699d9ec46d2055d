package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "TGINVITE"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile works like Load but reads the config file at path instead of
// searching for config.yaml. An empty path searches the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about; keys without
	// a default need an explicit binding.
	for _, key := range []string{"auth.session_token_secret", "client.login_code", "client.seed_file"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 30)
	v.SetDefault("server.allowed_origins", []string{"http://localhost", "https://localhost"})

	v.SetDefault("auth.token_lifetime_minutes", 24*60)

	v.SetDefault("session.max_sessions", 50)
	v.SetDefault("session.queue_size", 16)
	v.SetDefault("session.idle_timeout_minutes", 60)

	v.SetDefault("scan.default_max_messages", 3000)
	v.SetDefault("scan.recency_window_days", 7)
	v.SetDefault("scan.max_parallel_groups", 0)

	v.SetDefault("invite.batch_size", 5)
	v.SetDefault("invite.batch_pause_seconds", 5)
	v.SetDefault("invite.max_attempts", 3)
	v.SetDefault("invite.retry_backoff_seconds", 30)
	v.SetDefault("invite.failure_cooldown_seconds", 60)
	v.SetDefault("invite.default_delay_min", 60)
	v.SetDefault("invite.default_delay_max", 60)

	v.SetDefault("client.driver", "memory")
	v.SetDefault("client.requests_per_second", 0)
	v.SetDefault("client.burst", 1)
}
