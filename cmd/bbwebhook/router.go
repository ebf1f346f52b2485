package main

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	bbhttp "github.com/Strob0t/bbwebhook/internal/adapter/http"
	cfotel "github.com/Strob0t/bbwebhook/internal/adapter/otel"
	"github.com/Strob0t/bbwebhook/internal/config"
	"github.com/Strob0t/bbwebhook/internal/middleware"
)

// newRouter assembles the middleware chain and routes. X-Forwarded-For and
// X-Real-IP rewrite the client address, and with it the rate limit key,
// only when server.trust_proxy_headers is set.
func newRouter(cfg *config.Config, h *bbhttp.Handlers, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()
	if cfg.Server.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(cfotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(bbhttp.Logger)
	r.Use(bbhttp.Recoverer)

	bbhttp.MountRoutes(r, h, cfg.Server.Path, limiter)
	return r
}
