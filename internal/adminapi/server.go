package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/bus"
	"github.com/airwave/airwave/internal/source"
)

// pinger is the subset of store.Store the admin surface depends on.
type pinger interface {
	HealthCheck(ctx context.Context) error
}

// Options configures the admin HTTP surface.
type Options struct {
	Store     pinger
	Sources   *source.Manager
	Bus       *bus.Bus
	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

// NewRouter builds the chi router for the admin surface: /healthz, /readyz,
// /metrics, and a /debug namespace for live bus/source introspection.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recoverer)
	r.Use(requestLogger(opts.Log))

	h := &handlers{opts: opts}

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/debug/bus", h.debugBus)
	r.Get("/debug/sources", h.debugSources)

	return r
}
