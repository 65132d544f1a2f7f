// Package http assembles the service router: middleware chain first, then
// every module handler. Handlers stay thin; engines own the semantics.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aurum/pkg/platform/httputil"
	"aurum/pkg/platform/middleware/auth"
	"aurum/pkg/platform/middleware/requestid"
	"aurum/pkg/platform/middleware/requesttime"
	"aurum/pkg/platform/middleware/tracing"
)

// ModuleHandler mounts one module's routes.
type ModuleHandler interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(r *http.Request) error
}

// HealthFunc adapts a function to HealthChecker.
type HealthFunc func(r *http.Request) error

func (f HealthFunc) Health(r *http.Request) error { return f(r) }

// Config carries the router's collaborators.
type Config struct {
	Verifier *auth.Verifier
	Logger   *slog.Logger
	Handlers []ModuleHandler
	Health   []HealthChecker
}

// NewRouter builds the service handler. Every API route runs behind request
// id, request time, tracing and JWT authentication; /healthz and /metrics
// stay open.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(tracing.Middleware)

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Verifier != nil {
			r.Use(auth.RequireAuth(cfg.Verifier, cfg.Logger))
		}
		for _, h := range cfg.Handlers {
			h.Register(r)
		}
	})
	return r
}

func healthHandler(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check.Health(r); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
