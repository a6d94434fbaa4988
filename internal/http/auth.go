package httpapi

import (
	"context"
	"net/http"
	"strings"

	"memberhub-backend-go/internal/services"
)

type contextKey string

const ctxIdentity contextKey = "identity"

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

func withIdentity(r *http.Request, id services.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxIdentity, id))
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			id, err := tokens.VerifyToken(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, withIdentity(r, id))
		})
	}
}

// OptionalAuth attaches an identity when a valid token is present and
// otherwise continues anonymously.
func OptionalAuth(tokens services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if id, err := tokens.VerifyToken(token); err == nil {
					r = withIdentity(r, id)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly must run after RequireAuth. Without an identity it always denies.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CurrentIdentity(r)
		if !ok || !id.IsAdmin() {
			WriteError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CurrentIdentity(r *http.Request) (services.Identity, bool) {
	id, ok := r.Context().Value(ctxIdentity).(services.Identity)
	return id, ok
}

// identityPtr is nil for anonymous requests.
func identityPtr(r *http.Request) *services.Identity {
	if id, ok := CurrentIdentity(r); ok {
		return &id
	}
	return nil
}
