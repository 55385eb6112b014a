package webhook

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig holds router wiring.
type RouterConfig struct {
	Handler        *Handler
	MetricsHandler http.Handler
}

// NewRouter builds the chi router for the intake server.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Handler == nil {
		panic("webhook: handler cannot be nil")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", cfg.Handler.HealthCheck)
	r.Get("/jobs/{jobID}", cfg.Handler.JobStatus)
	r.Post("/webhooks/sms", cfg.Handler.HandleInbound)
	r.Post("/webhooks/billing", cfg.Handler.HandleBilling)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	return r
}
