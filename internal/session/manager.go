package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/secrets-board/internal/auth"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// Manager issues, resolves and revokes sessions.
type Manager struct {
	store  Store
	tokens *auth.TokenService
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// NewManager creates a Manager. secure controls the cookie Secure flag and
// should be true whenever the site is served over HTTPS.
func NewManager(store Store, tokens *auth.TokenService, ttl time.Duration, secure bool, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		secure: secure,
		logger: logger,
	}
}

// Establish starts a session for identity and sets the cookie on w.
//
// Any session the request already carried is revoked first, so a login
// always yields a fresh ID.
func (m *Manager) Establish(w http.ResponseWriter, r *http.Request, identity Identity) error {
	if identity.UserID == "" {
		return errors.New("session: identity has no user id")
	}
	if _, oldID, ok := m.resolve(r); ok {
		if err := m.store.Delete(r.Context(), oldID); err != nil {
			m.logger.Warn("session: revoking previous session failed", slog.String("error", err.Error()))
		}
	}

	id := rand.Text()
	if err := m.store.Save(r.Context(), id, identity, m.ttl); err != nil {
		return fmt.Errorf("session: saving: %w", err)
	}

	token, err := m.tokens.Sign(id, m.ttl)
	if err != nil {
		if delErr := m.store.Delete(r.Context(), id); delErr != nil {
			m.logger.Warn("session: discarding unsigned session failed", slog.String("error", delErr.Error()))
		}
		return fmt.Errorf("session: signing cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// End revokes the request's session, if any, and expires the cookie.
// Calling End on an anonymous request only clears the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	_, id, ok := m.resolve(r)
	if !ok {
		return nil
	}
	if err := m.store.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("session: deleting: %w", err)
	}
	return nil
}

// Load is middleware that attaches the request's Identity to its context
// when the session cookie resolves. It never rejects a request.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, id, ok := m.resolve(r); ok {
			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = context.WithValue(ctx, sessionIDKey, id)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// resolve maps the cookie on r to a stored identity.
func (m *Manager) resolve(r *http.Request) (Identity, string, bool) {
	if id, ok := r.Context().Value(sessionIDKey).(string); ok && id != "" {
		identity, _ := r.Context().Value(identityKey).(Identity)
		return identity, id, true
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, "", false
	}

	id, err := m.tokens.Verify(cookie.Value)
	if err != nil {
		m.logger.Debug("session: rejecting cookie", slog.String("error", err.Error()))
		return Identity{}, "", false
	}

	identity, err := m.store.Load(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("session: store lookup failed", slog.String("error", err.Error()))
		}
		return Identity{}, "", false
	}
	return identity, id, true
}
