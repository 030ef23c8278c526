// ABOUTME: HTTP middleware for the identity gate and role gate
// ABOUTME: Extracts the bearer token, validates it, and enforces role requirements

package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/portalmesh/portal-bff/internal/metrics"
	"github.com/portalmesh/portal-bff/internal/web"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and a reason string (empty if successful). The reason is
// for logs only; clients always receive the generic message.
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// unauthorized writes the generic 401 envelope. Validation internals stay in
// the log; the response never varies with the failure mode.
func unauthorized(w http.ResponseWriter, logger *slog.Logger, reason string, err error) {
	if logger != nil {
		logger.Debug("rejecting request", "reason", reason, "error", err)
	}
	metrics.AuthRejections.WithLabelValues("unauthenticated").Inc()
	web.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing token")
}

// Middleware creates an HTTP middleware that validates the bearer token and
// attaches the resulting Identity to the request context. Requests that fail
// validation are rejected with 401 before reaching the next handler.
func Middleware(verifier *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := extractBearerToken(r.Header.Get("Authorization"))
			if reason != "" {
				unauthorized(w, logger, reason, nil)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w, logger, "token validation failed", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalMiddleware attempts bearer validation but lets unauthenticated
// requests through without an identity. Endpoints that permit anonymous
// access use this; RequireRole still denies them any role-gated route.
func OptionalMiddleware(verifier *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := extractBearerToken(r.Header.Get("Authorization"))
			if reason != "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole creates a middleware that allows the request when the identity
// holds at least one of the given roles. Must be mounted after Middleware;
// an absent identity has no roles and is denied for any non-empty set.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := FromContext(r.Context())
			if identity == nil || !identity.HasAnyRole(roles...) {
				metrics.AuthRejections.WithLabelValues("forbidden").Inc()
				web.WriteError(w, http.StatusForbidden, "forbidden",
					"you do not have the required role to access this resource (requires one of: "+strings.Join(roles, ", ")+")")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
