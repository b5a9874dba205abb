// Package hub serves a remote.Store over HTTP so devices without direct
// storage credentials can sync through a shared host.
package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/freezer/internal/auth"
	"github.com/dukerupert/freezer/internal/middleware"
	"github.com/dukerupert/freezer/internal/notify"
	"github.com/dukerupert/freezer/internal/remote"
)

// DefaultWriteLimit is the number of writes each API client may make per
// minute.
const DefaultWriteLimit = 120

type Server struct {
	store    remote.Store
	hub      *notify.Hub
	keys     *auth.Keys
	limiter  *middleware.WriteLimiter
	validate *validator.Validate
	registry *prometheus.Registry
	metrics  *metrics
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*options)

type options struct {
	writeLimit  int
	writePeriod time.Duration
}

// WithWriteLimit sets how many writes each API client may make per period.
func WithWriteLimit(limit int, period time.Duration) Option {
	return func(o *options) {
		o.writeLimit = limit
		o.writePeriod = period
	}
}

func New(store remote.Store, keys *auth.Keys, logger *slog.Logger, opts ...Option) *Server {
	o := options{writeLimit: DefaultWriteLimit, writePeriod: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	hub := notify.NewHub(logger.With("component", "notify"))
	registry := prometheus.NewRegistry()
	m := newMetrics(registry, hub)
	return &Server{
		store:    store,
		hub:      hub,
		keys:     keys,
		limiter:  middleware.NewWriteLimiter(o.writeLimit, o.writePeriod, middleware.OnThrottle(m.writeThrottled)),
		validate: newValidator(),
		registry: registry,
		metrics:  m,
		now:      time.Now,
		logger:   logger,
	}
}

// Hub returns the change notification hub.
func (s *Server) Hub() *notify.Hub {
	return s.hub
}

// WriteLimiter returns the per-client write limiter for cleanup tasks.
func (s *Server) WriteLimiter() *middleware.WriteLimiter {
	return s.limiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)
	outerMux.Handle("/v1/", middleware.RequireAPIKey(s.keys)(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(s.metrics.instrument(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return s.limiter.Limit(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/records/{scope}/{name}", s.getRecord)
	mux.Handle("PUT /v1/records/{scope}/{name}", s.rateLimited(s.putRecord))

	mux.HandleFunc("GET /v1/subscriptions/{scope}/{id}", s.getSubscription)
	mux.Handle("PUT /v1/subscriptions/{scope}/{id}", s.rateLimited(s.putSubscription))

	mux.HandleFunc("GET /v1/shares/{name}", s.getShare)
	mux.Handle("POST /v1/shares", s.rateLimited(s.postShare))
	mux.HandleFunc("GET /v1/share-metadata", s.getShareMetadata)
	mux.Handle("POST /v1/share-accept", s.rateLimited(s.postShareAccept))

	mux.HandleFunc("GET /v1/changes", notify.Handler(s.hub, s.logger.With("component", "changes")))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
