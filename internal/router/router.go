package router

import (
	"net/http"

	"reelhub-api/internal/handler"
	"reelhub-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	BatchHandler   *handler.BatchHandler
	PublishHandler *handler.PublishHandler
	SyncHandler    *handler.SyncHandler
	MediaHandler   *handler.MediaHandler
	AdminHandler   *handler.AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if cfg.BatchHandler != nil {
				r.Route("/batches", func(r chi.Router) {
					r.Post("/", cfg.BatchHandler.CreateBatch)
					r.Get("/{id}", cfg.BatchHandler.GetBatch)
					r.Patch("/{id}/master", cfg.BatchHandler.PatchMaster)
				})
				r.Route("/jobs/{id}", func(r chi.Router) {
					r.Get("/override", cfg.BatchHandler.GetOverride)
					r.Patch("/override", cfg.BatchHandler.PatchOverride)
					r.Get("/effective", cfg.BatchHandler.GetEffective)
				})
			}

			if cfg.PublishHandler != nil {
				r.Post("/publish", cfg.PublishHandler.Publish)
				r.Post("/posts/{id}/retry", cfg.PublishHandler.Retry)
				r.Get("/posts/{id}/logs", cfg.PublishHandler.Logs)
				r.Delete("/accounts/{account_id}", cfg.PublishHandler.DeleteAccount)
			}

			if cfg.SyncHandler != nil {
				r.Route("/analytics", func(r chi.Router) {
					r.Post("/sync", cfg.SyncHandler.Sync)
					r.Get("/accounts", cfg.SyncHandler.ListAccounts)
					r.Put("/accounts/{account_id}", cfg.SyncHandler.UpsertAccount)
				})
			}

			if cfg.MediaHandler != nil {
				r.Route("/media", func(r chi.Router) {
					r.Get("/signed-url", cfg.MediaHandler.SignedURL)
					r.Post("/signed-urls", cfg.MediaHandler.SignedURLs)
				})
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Get("/health", cfg.AdminHandler.GetHealth)
				})
			}
		})
	})

	return r
}
