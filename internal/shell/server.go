// ABOUTME: HTTP route layer for the shell BFF: session endpoints and health
// ABOUTME: All token material stays server-side; the browser only holds a cookie

package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portalmesh/portal-bff/internal/config"
	"github.com/portalmesh/portal-bff/internal/metrics"
	"github.com/portalmesh/portal-bff/internal/session"
	"github.com/portalmesh/portal-bff/internal/web"
)

// Server holds the shell BFF's route handlers and their dependencies.
type Server struct {
	cfg      *config.Config
	sessions session.Store
	logger   *slog.Logger
}

// NewServer creates the shell route layer backed by the given session store.
func NewServer(cfg *config.Config, sessions session.Store, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger.With("component", "shell"),
	}
}

// Handler assembles the shell BFF's route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session", s.handleCreateSession)
	mux.HandleFunc("DELETE /session", s.handleDeleteSession)
	mux.HandleFunc("GET /api/token", s.withSession(s.handleToken))
	mux.HandleFunc("GET /api/me", s.withSession(s.handleMe))

	// Token inspection exposes decoded claims; only registered when
	// explicitly enabled so the route does not exist in production.
	if s.cfg.Debug.TokenInspection {
		s.logger.Warn("token inspection endpoint enabled; do not use in production")
		mux.HandleFunc("GET /api/debug/token", s.withSession(s.handleDebugToken))
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	if s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, promhttp.Handler())
	}

	return web.Instrument(mux)
}

// createSessionRequest is the auth front door's callback payload.
type createSessionRequest struct {
	AccessToken string          `json:"access_token"`
	User        json.RawMessage `json:"user"`
}

// handleCreateSession establishes a browser session from the front door's
// callback. The token is stored server-side; the browser gets only the
// opaque session cookie.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	if req.AccessToken == "" {
		web.WriteError(w, http.StatusBadRequest, "invalid_request", "access_token is required")
		return
	}

	subject, err := tokenSubject(req.AccessToken)
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed access token")
		return
	}

	now := time.Now().UTC()
	sess := &session.Session{
		Subject:     subject,
		AccessToken: req.AccessToken,
		User:        req.User,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Session.TTL),
	}
	if err := s.sessions.Create(r.Context(), sess); err != nil {
		s.logger.Error("creating session", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal", "could not create session")
		return
	}

	s.logger.Info("session created", "subject", subject, "session_id", sess.ID)
	http.SetCookie(w, s.sessionCookie(sess.ID, int(s.cfg.Session.TTL.Seconds())))
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteSession ends the session and expires the cookie. Deleting a
// session that no longer exists is not an error.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
			s.logger.Error("deleting session", "error", err)
		}
	}
	http.SetCookie(w, s.sessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

// handleToken returns the session's access token for the frontend to attach
// to its API calls (and relay to the embedded portal).
func (s *Server) handleToken(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	web.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": sess.AccessToken})
}

// handleMe returns the user info captured at login.
func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	user := sess.User
	if len(user) == 0 {
		user = json.RawMessage("null")
	}
	web.WriteJSON(w, http.StatusOK, map[string]json.RawMessage{"user": user})
}

// handleDebugToken returns the decoded header and claims of the session's
// access token. The signature is not re-verified here; this is a diagnostic
// view of a token the shell already holds.
func (s *Server) handleDebugToken(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	claims := jwt.MapClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(sess.AccessToken, claims)
	if err != nil {
		web.WriteError(w, http.StatusUnprocessableEntity, "invalid_token", "session token is not a decodable JWT")
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{
		"header": token.Header,
		"claims": claims,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady verifies the session store answers queries.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.Get(r.Context(), "readiness-probe"); err != nil && !errors.Is(err, session.ErrNotFound) {
		s.logger.Error("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("session store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// sessionHandler is a handler that requires a live session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the session cookie and rejects the request with a
// generic 401 envelope when no live session exists.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			s.rejectUnauthenticated(w, "missing_cookie")
			return
		}
		sess, err := s.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				s.logger.Error("loading session", "error", err)
			}
			s.rejectUnauthenticated(w, "no_session")
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) rejectUnauthenticated(w http.ResponseWriter, reason string) {
	metrics.AuthRejections.WithLabelValues(reason).Inc()
	web.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing session")
}

func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// tokenSubject extracts the sub claim without verifying the signature. The
// shell trusts the front door that delivered the token; verification happens
// at the child BFF on every proxied request.
func tokenSubject(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("parsing access token: %w", err)
	}
	subject, _ := claims.GetSubject()
	return subject, nil
}
