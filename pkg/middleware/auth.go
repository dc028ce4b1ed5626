package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/brokerhive/portal/pkg/contextkeys"
	"github.com/brokerhive/portal/pkg/observability"
)

// Principal is the authenticated caller. Role is the broker's role
// name as stored, which may be unknown to the template resolver; the
// permission layer handles that with its fallback.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionValidator turns a bearer token into a principal. The concrete
// implementation lives with whatever identity system fronts the portal;
// this package only consumes it.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*Principal, error)
}

// AuthMiddleware resolves the session token on each request and puts
// the principal on the context.
type AuthMiddleware struct {
	validator SessionValidator
	optional  bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(validator SessionValidator, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		optional:  optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			m.unauthorizedResponse(w, "missing authorization header")
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		principal, err := m.validator.Validate(r.Context(), parts[1])
		if err != nil {
			m.unauthorizedResponse(w, "invalid or expired session")
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		ctx = observability.WithPrincipalID(ctx, principal.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// GetPrincipal extracts the authenticated principal from the request
func GetPrincipal(r *http.Request) *Principal {
	v := r.Context().Value(contextkeys.PrincipalKey)
	if v == nil {
		return nil
	}
	principal, ok := v.(*Principal)
	if !ok {
		return nil
	}
	return principal
}
