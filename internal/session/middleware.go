package session

import (
	"context"
	"net/http"
)

// contextKey is unexported so only this package can read or write the
// session values it places on a context.
type contextKey string

const (
	identityKey  contextKey = "identity"
	sessionIDKey contextKey = "sessionID"
)

// IdentityFromContext returns the authenticated identity for the request.
// It returns (Identity{}, false) for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok && identity.UserID != ""
}

// WithIdentity returns a copy of ctx carrying identity. Handlers never need
// it; tests use it to fake an authenticated request.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// RequireAuth short-circuits anonymous requests with a redirect to
// redirectTo. Authenticated requests pass through unchanged. It must be
// mounted after Manager.Load.
func RequireAuth(redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				http.Redirect(w, r, redirectTo, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
