package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/domain"
)

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// Authenticator resolves a bearer token to a principal. An unknown or
// expired token resolves to (nil, nil).
type Authenticator interface {
	Authenticate(token string) (*Principal, error)
}

type principalKey struct{}

// PrincipalFrom extracts the authenticated principal from the context.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithPrincipal returns a context carrying the principal. Used by tests and
// the auth middleware.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// RequireAuth rejects requests without a valid session token. The token is
// read from the Authorization header (Bearer scheme) or the session cookie.
func RequireAuth(auth Authenticator, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteError(w, r, log, domain.E(domain.KindUnauthenticated, "missing credentials"))
				return
			}

			principal, err := auth.Authenticate(token)
			if err != nil {
				WriteError(w, r, log, err)
				return
			}
			if principal == nil {
				WriteError(w, r, log, domain.E(domain.KindUnauthenticated, "invalid or expired session"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *principal)))
		})
	}
}

// RequireAdmin rejects authenticated requests whose principal is not an
// admin. Must be mounted after RequireAuth.
func RequireAdmin(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				WriteError(w, r, log, domain.E(domain.KindUnauthenticated, "missing credentials"))
				return
			}
			if !principal.IsAdmin() {
				WriteError(w, r, log, domain.E(domain.KindForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}
