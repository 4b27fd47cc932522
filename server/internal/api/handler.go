package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatrelay/chatrelay/server/internal/auth"
	"github.com/chatrelay/chatrelay/server/internal/registry"
	"github.com/chatrelay/chatrelay/server/internal/store"
)

// Handler serves the admin endpoints from the relay registry.
type Handler struct {
	reg    *registry.Registry
	router chi.Router

	sessions *store.Store

	keyHeader string
	key       string
}

// WithSessions serves GET /sessions from st.
func WithSessions(st *store.Store) Option {
	return func(h *Handler) { h.sessions = st }
}

// Option configures the admin handler.
type Option func(*Handler)

// WithAPIKey requires key in header on every route except /healthz. An
// empty key leaves the routes open.
func WithAPIKey(header, key string) Option {
	return func(h *Handler) {
		h.keyHeader = header
		h.key = key
	}
}

// New creates the admin handler. Metrics are exposed from gatherer; a nil
// gatherer uses prometheus.DefaultGatherer.
func New(reg *registry.Registry, gatherer prometheus.Gatherer, opts ...Option) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &Handler{reg: reg, router: chi.NewRouter()}
	for _, opt := range opts {
		opt(h)
	}

	h.router.Use(middleware.Recoverer)
	h.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	h.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Probes hit /healthz without credentials.
	h.router.Get("/healthz", h.health)
	h.router.Group(func(r chi.Router) {
		r.Use(auth.APIKey(h.keyHeader, h.key))
		r.Get("/users", h.users)
		if h.sessions != nil {
			r.Get("/sessions", h.listSessions)
		}
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	})

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /healthz.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Connections: h.reg.Len(),
	})
}

// users returns GET /users.
func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, UsersResponse{Usernames: h.reg.Names()})
}

// listSessions returns GET /sessions.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, SessionsResponse{Sessions: h.sessions.List()})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
