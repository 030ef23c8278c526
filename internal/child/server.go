// ABOUTME: HTTP route layer for the child BFF: role-gated proxy endpoints
// ABOUTME: Translates downstream and token-acquisition failures into error envelopes

package child

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portalmesh/portal-bff/internal/apiclient"
	"github.com/portalmesh/portal-bff/internal/auth"
	"github.com/portalmesh/portal-bff/internal/b2btoken"
	"github.com/portalmesh/portal-bff/internal/config"
	"github.com/portalmesh/portal-bff/internal/web"
)

// maxRequestBody bounds pass-through POST bodies.
const maxRequestBody = 1 << 20

// Server holds the child BFF's route handlers and their dependencies.
type Server struct {
	cfg       *config.Config
	verifier  *auth.Verifier
	users     *apiclient.Factory
	customers *apiclient.Factory
	logger    *slog.Logger
}

// NewServer creates the child route layer. Downstream clients for the user
// and customer APIs are derived from the config; both share the token source.
func NewServer(cfg *config.Config, verifier *auth.Verifier, tokens apiclient.TokenSource, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		verifier:  verifier,
		users:     apiclient.NewFactory(cfg.APIs.User.BaseURL, cfg.APIs.User.Audience, tokens, cfg.APIs.Timeout),
		customers: apiclient.NewFactory(cfg.APIs.Customer.BaseURL, cfg.APIs.Customer.Audience, tokens, cfg.APIs.Timeout),
		logger:    logger.With("component", "child"),
	}
}

// Handler assembles the child BFF's route mux. All /api routes sit behind
// the identity gate plus a per-resource role gate.
func (s *Server) Handler() http.Handler {
	identity := auth.Middleware(s.verifier, s.logger)
	userRoles := auth.RequireRole("user-reader", "admin")
	customerRoles := auth.RequireRole("customer-reader", "admin")

	mux := http.NewServeMux()

	mux.Handle("GET /api/users", identity(userRoles(http.HandlerFunc(s.handleListUsers))))
	mux.Handle("GET /api/users/{id}", identity(userRoles(http.HandlerFunc(s.handleGetUser))))
	mux.Handle("POST /api/users", identity(userRoles(http.HandlerFunc(s.handleCreateUser))))

	mux.Handle("GET /api/customers", identity(customerRoles(http.HandlerFunc(s.handleListCustomers))))
	mux.Handle("GET /api/customers/{id}", identity(customerRoles(http.HandlerFunc(s.handleGetCustomer))))
	mux.Handle("POST /api/customers", identity(customerRoles(http.HandlerFunc(s.handleCreateCustomer))))

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, promhttp.Handler())
	}

	return web.Instrument(mux)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.proxyList(w, r, s.users, "/users", "users")
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.proxyGet(w, r, s.users, "/users/"+r.PathValue("id"))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	s.proxyCreate(w, r, s.users, "/users")
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	s.proxyList(w, r, s.customers, "/customers", "customers")
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	s.proxyGet(w, r, s.customers, "/customers/"+r.PathValue("id"))
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	s.proxyCreate(w, r, s.customers, "/customers")
}

// proxyList fetches a downstream collection and wraps it as {<key>: [...], count: N}.
func (s *Server) proxyList(w http.ResponseWriter, r *http.Request, factory *apiclient.Factory, path, key string) {
	client, err := factory.Client(r.Context())
	if err != nil {
		s.writeProxyError(w, r, err)
		return
	}

	var items []json.RawMessage
	if err := client.Get(r.Context(), path, &items); err != nil {
		s.writeProxyError(w, r, err)
		return
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{key: items, "count": len(items)})
}

// proxyGet fetches a single downstream resource and passes its body through.
func (s *Server) proxyGet(w http.ResponseWriter, r *http.Request, factory *apiclient.Factory, path string) {
	client, err := factory.Client(r.Context())
	if err != nil {
		s.writeProxyError(w, r, err)
		return
	}

	var item json.RawMessage
	if err := client.Get(r.Context(), path, &item); err != nil {
		s.writeProxyError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, item)
}

// proxyCreate passes the request body through to the downstream API and
// returns its representation with 201.
func (s *Server) proxyCreate(w http.ResponseWriter, r *http.Request, factory *apiclient.Factory, path string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid_request", "could not read request body")
		return
	}
	if !json.Valid(body) {
		web.WriteError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	client, err := factory.Client(r.Context())
	if err != nil {
		s.writeProxyError(w, r, err)
		return
	}

	var created json.RawMessage
	if err := client.Post(r.Context(), path, json.RawMessage(body), &created); err != nil {
		s.writeProxyError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, created)
}

// writeProxyError maps proxy failures onto the client-facing envelope.
// Downstream statuses propagate; token acquisition failures stay opaque.
func (s *Server) writeProxyError(w http.ResponseWriter, r *http.Request, err error) {
	var downstream *apiclient.DownstreamError
	switch {
	case errors.As(err, &downstream):
		s.logger.Warn("downstream API error", "path", r.URL.Path, "status", downstream.Status)
		web.WriteError(w, downstream.Status, "downstream_error", downstream.Message)
	case errors.Is(err, b2btoken.ErrAcquisition):
		s.logger.Error("token acquisition failed", "path", r.URL.Path)
		web.WriteError(w, http.StatusBadGateway, "bad_gateway", "could not authenticate to downstream service")
	default:
		s.logger.Error("proxying request", "path", r.URL.Path, "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
