package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/observability"
	"github.com/lumen-commerce/lumen/internal/role"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	Channels    *channel.Service
	RoleHandler *role.Handler
	Metrics     *observability.Metrics
}

// NewRouter constructs the chi.Router with Lumen defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Channels: params.Channels,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.Metrics.Middleware)

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/roles", params.RoleHandler.MountRoutes)

	return r
}
