package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/config"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/events"
	"github.com/kenlau666/tg-bulk-invite-next/internal/invite"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/kenlau666/tg-bulk-invite-next/internal/scan"
	"github.com/kenlau666/tg-bulk-invite-next/internal/service"
	"github.com/kenlau666/tg-bulk-invite-next/internal/service/auth"
	"github.com/kenlau666/tg-bulk-invite-next/internal/session"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger  *slog.Logger
	clients messaging.ClientFactory

	// Session state
	registry *session.Registry
	board    *events.StatusBoard

	// Event system
	eventEmitter *events.InMemoryEventEmitter

	// Service interfaces
	bulkInviteService service.BulkInviteService
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.clients, err = newClientFactory(cfg.Client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	tokens, err := auth.NewSessionTokens(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session tokens: %w", err)
	}
	logger.Info("Session token service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.registry = session.NewRegistry(session.RegistryConfig{
		MaxSessions: cfg.Session.MaxSessions,
		QueueSize:   cfg.Session.QueueSize,
		IdleTimeout: cfg.Session.IdleTimeout(),
	}, logger)

	// The board keeps job progress readable after sessions are torn down.
	app.board = events.NewStatusBoard(0)
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.board)
	app.eventEmitter.RegisterHandler(events.NewLoggingHandler(logger))

	scanner := scan.NewScanner(scan.Config{
		RecencyWindow:      cfg.Scan.RecencyWindow(),
		MaxParallelGroups:  cfg.Scan.MaxParallelGroups,
		DefaultMaxMessages: cfg.Scan.DefaultMaxMessages,
	}, logger)

	app.bulkInviteService, err = service.NewBulkInviteService(serviceConfig(cfg), service.Deps{
		Registry: app.registry,
		Scanner:  scanner,
		Tokens:   tokens,
		Clients:  app.clients,
		Emitter:  app.eventEmitter,
		Board:    app.board,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk invite service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// serviceConfig translates the invite and client sections into service settings.
func serviceConfig(cfg *config.Config) service.Config {
	return service.Config{
		Job: invite.Config{
			BatchSize:  cfg.Invite.BatchSize,
			BatchPause: time.Duration(cfg.Invite.BatchPauseSeconds) * time.Second,
			Retry: invite.RetryPolicy{
				MaxAttempts: cfg.Invite.MaxAttempts,
				Backoff:     time.Duration(cfg.Invite.RetryBackoffSeconds) * time.Second,
				Cooldown:    time.Duration(cfg.Invite.FailureCooldownSeconds) * time.Second,
			},
		},
		DefaultDelay: domain.DelayRange{
			Min: cfg.Invite.DefaultDelayMin,
			Max: cfg.Invite.DefaultDelayMax,
		},
		RequestsPerSecond: cfg.Client.RequestsPerSecond,
		Burst:             cfg.Client.Burst,
	}
}

// newClientFactory builds the messaging driver selected by cfg.Driver.
func newClientFactory(cfg config.ClientConfig, logger *slog.Logger) (messaging.ClientFactory, error) {
	switch cfg.Driver {
	case "memory":
		var opts []messaging.PlatformOption
		if cfg.LoginCode != "" {
			opts = append(opts, messaging.WithLoginCode(cfg.LoginCode))
		}
		platform := messaging.NewPlatform(opts...)
		if cfg.SeedFile != "" {
			world, err := messaging.LoadWorld(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := platform.Seed(world); err != nil {
				return nil, fmt.Errorf("failed to seed memory platform: %w", err)
			}
			logger.Info("Memory platform seeded",
				"users", len(world.Users),
				"groups", len(world.Groups))
		}
		return platform, nil
	default:
		return nil, fmt.Errorf("unsupported client driver %q", cfg.Driver)
	}
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go app.registry.RunReaper(reaperCtx, reaperInterval(app.config.Session.IdleTimeout()))

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// reaperInterval checks for idle sessions a few times per timeout, at most
// once a minute.
func reaperInterval(idle time.Duration) time.Duration {
	interval := idle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// cleanup cancels running jobs and tears every session down.
func (app *application) cleanup(ctx context.Context) {
	if app.registry != nil {
		if err := app.registry.Shutdown(ctx); err != nil {
			app.logger.Error("Error shutting down sessions", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
