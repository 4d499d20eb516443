package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wordtrail/wordtrail-api/internal/api"
	apiMiddleware "github.com/wordtrail/wordtrail-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Trace IDs for log/error correlation

	// Create API handlers using the application's services
	sessionHandler := api.NewSessionHandler(app.sessionService, app.logger)
	progressHandler := api.NewProgressHandler(app.sessionService, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Session lifecycle
		r.Post("/sessions", sessionHandler.OpenSession)
		r.Post("/sessions/{sessionID}/answers", sessionHandler.SubmitAnswer)
		r.Post("/sessions/{sessionID}/close", sessionHandler.CloseSession)

		// Progress reads and review scheduling
		r.Get("/users/{userID}/progress/{itemID}", progressHandler.GetProgress)
		r.Post("/users/{userID}/progress/{itemID}/postpone", progressHandler.PostponeReview)
		r.Get("/users/{userID}/review-queue", progressHandler.GetReviewQueue)
		r.Get("/users/{userID}/analytics", progressHandler.GetAnalytics)
		r.Delete("/users/{userID}/progress", progressHandler.ResetProgress)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
