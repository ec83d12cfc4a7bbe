package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

// Middleware validates the bearer token on every request and stores the
// claims in the request context.
type Middleware struct {
	manager *Manager
}

func NewMiddleware(manager *Manager) *Middleware {
	return &Middleware{manager: manager}
}

func (m *Middleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := m.manager.ParseToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.Type != TokenTypeAccess {
			http.Error(w, "access token required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireRole gates a handler to the given user types.
func (m *Middleware) RequireRole(next http.HandlerFunc, userTypes ...string) http.HandlerFunc {
	return m.Require(func(w http.ResponseWriter, r *http.Request) {
		claims := FromContext(r)
		for _, t := range userTypes {
			if claims != nil && claims.UserType == t {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "permission denied", http.StatusForbidden)
	})
}

func FromContext(r *http.Request) *Claims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
