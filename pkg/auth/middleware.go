package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth validates JWT and requires a valid project ID.
// Sets claims and token in context for downstream handlers.
// Use this for endpoints that need authentication but don't have a project ID in the URL.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}

		if err := m.authService.RequireProjectID(claims); err != nil {
			m.badRequest(w, "Missing project ID in token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = context.WithValue(ctx, TokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

// RequireAuthWithPathValidation validates JWT and matches URL path project ID to token.
// Use for endpoints like /api/projects/{pid} where URL contains project scope.
// pathParamName is the name used in r.PathValue() (e.g., "pid").
func (m *Middleware) RequireAuthWithPathValidation(pathParamName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				m.unauthorized(w, "Authentication required")
				return
			}

			if err := m.authService.RequireProjectID(claims); err != nil {
				m.badRequest(w, "Missing project ID in token")
				return
			}

			urlProjectID := r.PathValue(pathParamName)

			if err := m.authService.ValidateProjectIDMatch(claims, urlProjectID); err != nil {
				m.forbidden(w, "Project ID mismatch between token and URL")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			ctx = context.WithValue(ctx, TokenKey, token)
			next(w, r.WithContext(ctx))
		}
	}
}

func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	m.writeError(w, http.StatusUnauthorized, "unauthorized", message)
}

func (m *Middleware) badRequest(w http.ResponseWriter, message string) {
	m.writeError(w, http.StatusBadRequest, "bad_request", message)
}

func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	m.writeError(w, http.StatusForbidden, "forbidden", message)
}

// writeError writes a JSON error body with the given status code.
func (m *Middleware) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	}); err != nil {
		m.logger.Error("Failed to write auth error response", zap.Error(err))
	}
}
