package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisasecretkeythatis32charslong!!"

// TestLoadDefaults verifies the defaults applied when only the secret is set.
// Tests in this file use t.Setenv and therefore do not run in parallel.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("TGINVITE_AUTH_SESSION_TOKEN_SECRET", testSecret)

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout())
	assert.Equal(t, []string{"http://localhost", "https://localhost"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenLifetime())
	assert.Equal(t, 50, cfg.Session.MaxSessions)
	assert.Equal(t, 16, cfg.Session.QueueSize)
	assert.Equal(t, time.Hour, cfg.Session.IdleTimeout())
	assert.Equal(t, 3000, cfg.Scan.DefaultMaxMessages)
	assert.Equal(t, 7*24*time.Hour, cfg.Scan.RecencyWindow())
	assert.Equal(t, 5, cfg.Invite.BatchSize)
	assert.Equal(t, 3, cfg.Invite.MaxAttempts)
	assert.Equal(t, 60, cfg.Invite.DefaultDelayMin)
	assert.Equal(t, 60, cfg.Invite.DefaultDelayMax)
	assert.Equal(t, "memory", cfg.Client.Driver)
}

// TestLoadFromEnv verifies that environment variables override defaults.
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TGINVITE_AUTH_SESSION_TOKEN_SECRET", testSecret)
	t.Setenv("TGINVITE_SERVER_PORT", "9090")
	t.Setenv("TGINVITE_SERVER_LOG_LEVEL", "debug")
	t.Setenv("TGINVITE_SESSION_MAX_SESSIONS", "3")
	t.Setenv("TGINVITE_INVITE_BATCH_SIZE", "2")
	t.Setenv("TGINVITE_CLIENT_LOGIN_CODE", "424242")
	t.Setenv("TGINVITE_CLIENT_REQUESTS_PER_SECOND", "2.5")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, testSecret, cfg.Auth.SessionTokenSecret)
	assert.Equal(t, 3, cfg.Session.MaxSessions)
	assert.Equal(t, 2, cfg.Invite.BatchSize)
	assert.Equal(t, "424242", cfg.Client.LoginCode)
	assert.InDelta(t, 2.5, cfg.Client.RequestsPerSecond, 0.001)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
auth:
  session_token_secret: "`+testSecret+`"
invite:
  default_delay_min: 5
  default_delay_max: 10
client:
  seed_file: world.yaml
`), 0o600))
	t.Setenv("TGINVITE_SERVER_PORT", "7171")

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 7171, cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, 5, cfg.Invite.DefaultDelayMin)
	assert.Equal(t, 10, cfg.Invite.DefaultDelayMax)
	assert.Equal(t, "world.yaml", cfg.Client.SeedFile)
	assert.Equal(t, 3000, cfg.Scan.DefaultMaxMessages, "defaults still apply")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestLoadValidationErrors verifies that the Load function correctly validates the configuration.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "Missing session token secret",
			envVars: map[string]string{"TGINVITE_SERVER_PORT": "9090"},
		},
		{
			name: "Invalid port number",
			envVars: map[string]string{
				"TGINVITE_AUTH_SESSION_TOKEN_SECRET": testSecret,
				"TGINVITE_SERVER_PORT":               "999999",
			},
		},
		{
			name: "Invalid log level",
			envVars: map[string]string{
				"TGINVITE_AUTH_SESSION_TOKEN_SECRET": testSecret,
				"TGINVITE_SERVER_LOG_LEVEL":          "invalid-level",
			},
		},
		{
			name: "Short session token secret",
			envVars: map[string]string{
				"TGINVITE_AUTH_SESSION_TOKEN_SECRET": "tooshort",
			},
		},
		{
			name: "Delay range inverted",
			envVars: map[string]string{
				"TGINVITE_AUTH_SESSION_TOKEN_SECRET": testSecret,
				"TGINVITE_INVITE_DEFAULT_DELAY_MIN":  "30",
				"TGINVITE_INVITE_DEFAULT_DELAY_MAX":  "10",
			},
		},
		{
			name: "Unknown client driver",
			envVars: map[string]string{
				"TGINVITE_AUTH_SESSION_TOKEN_SECRET": testSecret,
				"TGINVITE_CLIENT_DRIVER":             "mtproto",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TGINVITE_AUTH_SESSION_TOKEN_SECRET", "")
			for name, value := range tc.envVars {
				t.Setenv(name, value)
			}

			cfg, err := Load()

			require.Error(t, err, "Load() should return an error with invalid configuration")
			assert.Contains(t, err.Error(), "validation failed")
			assert.Nil(t, cfg, "Config should be nil when an error occurs")
		})
	}
}
