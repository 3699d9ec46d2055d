package main

import (
	"fmt"
	"log/slog"

	"github.com/kenlau666/tg-bulk-invite-next/internal/config"
)

// loadAppConfig loads the application configuration from environment variables or config file.
// Returns the loaded config and any loading error.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// logConfig reports the effective configuration without secrets.
func logConfig(logger *slog.Logger, cfg *config.Config) {
	logger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"client_driver", cfg.Client.Driver,
		"max_sessions", cfg.Session.MaxSessions)

	logger.Debug("Invite configuration",
		"batch_size", cfg.Invite.BatchSize,
		"max_attempts", cfg.Invite.MaxAttempts,
		"default_delay_min", cfg.Invite.DefaultDelayMin,
		"default_delay_max", cfg.Invite.DefaultDelayMax,
		"requests_per_second", cfg.Client.RequestsPerSecond,
		"seed_file_present", cfg.Client.SeedFile != "")
}
