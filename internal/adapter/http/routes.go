package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/bbwebhook/internal/middleware"
)

// MountRoutes registers the webhook, health and event stream routes.
// limiter, when non-nil, guards only webhook deliveries.
func MountRoutes(r chi.Router, h *Handlers, path string, limiter *middleware.RateLimiter) {
	if limiter != nil {
		r.With(limiter.Handler).Post(path, h.HandleWebhook)
	} else {
		r.Post(path, h.HandleWebhook)
	}
	r.Get(path, h.WebhookInfo)

	r.Get("/health", h.Health)
	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}
}
