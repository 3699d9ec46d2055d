package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kenlau666/tg-bulk-invite-next/internal/api"
	apiMiddleware "github.com/kenlau666/tg-bulk-invite-next/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	bulkInviteHandler := api.NewBulkInviteHandler(app.bulkInviteService, app.logger)
	progressHandler := api.NewProgressHandler(app.bulkInviteService, app.config.Server.AllowedOrigins, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/connect", bulkInviteHandler.Connect)
		r.Post("/getParticipants", bulkInviteHandler.GetParticipants)
		r.Post("/inviteParticipant", bulkInviteHandler.InviteParticipant)
		r.Post("/startBackgroundInvite", bulkInviteHandler.StartBackgroundInvite)
		r.Post("/inviteByPhoneNumbers", bulkInviteHandler.InviteByPhoneNumbers)
		r.Post("/stop", bulkInviteHandler.Stop)
		r.Post("/jobStatus", bulkInviteHandler.JobStatus)

		r.Get("/jobs/{sessionId}/progress", progressHandler.Stream)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
