package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"guardian-backend/internal/handlers"
	"guardian-backend/internal/middleware"
)

func New(webhook *handlers.WebhookHandler, status *handlers.StatusHandler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)

	apiLimiter := middleware.NewRateLimiter(60, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Chat platform webhook; authenticated by its body signature.
	r.Post("/callback", webhook.Callback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiLimiter.Middleware)

		r.Get("/users/{id}/status", status.UserStatus)
		r.Get("/users/{id}/ledger", status.UserLedger)
		r.Get("/pending", status.Pending)
		r.Get("/shop/catalog", status.Catalog)
		r.Get("/jobs/open", status.OpenJobs)
	})

	return r
}
