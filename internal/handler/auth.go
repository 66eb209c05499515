package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/secrets-board/internal/auth"
	"github.com/sakif/secrets-board/internal/service"
	"github.com/sakif/secrets-board/internal/session"
)

const stateCookieName = "oauth_state"

// AuthHandler serves local registration and login, the Google OAuth flow
// and logout.
//
//   - HandleRegister       → create a local account and sign it in
//   - HandleLogin          → check a username/password pair
//   - HandleGoogleLogin    → redirect the browser to Google's consent page
//   - HandleGoogleCallback → exchange the code and sign the user in
//   - HandleLogout         → end the session
type AuthHandler struct {
	auth     *service.AuthService
	sessions *session.Manager
	google   *auth.GoogleProvider // nil when Google sign-in is not configured
	secure   bool
	logger   *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	sessions *session.Manager,
	google *auth.GoogleProvider,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		sessions: sessions,
		google:   google,
		secure:   secure,
		logger:   logger,
	}
}

// HandleRegister creates a local account from the posted form.
//
// HTTP: POST /register (username, password)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logFailure(h.logger, r, "register: parsing form", err)
		seeOther(w, r, "/register")
		return
	}

	result, err := h.auth.Register(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		logFailure(h.logger, r, "register failed", err)
		seeOther(w, r, "/register")
		return
	}

	h.signIn(w, r, result, "/register")
}

// HandleLogin authenticates the posted credentials.
//
// HTTP: POST /login (username, password)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logFailure(h.logger, r, "login: parsing form", err)
		seeOther(w, r, "/login")
		return
	}

	result, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		logFailure(h.logger, r, "login failed", err)
		seeOther(w, r, "/login")
		return
	}

	h.signIn(w, r, result, "/login")
}

// HandleGoogleLogin sends the browser to Google's consent screen.
//
// HTTP: GET /auth/google
//
// A random state value is stored in a short-lived cookie and checked again
// in HandleGoogleCallback.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.logger.Warn("google sign-in requested but not configured")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusFound)
}

// HandleGoogleCallback completes the OAuth flow.
//
// HTTP: GET /auth/google/secrets?code=...&state=...
//
// Any failure (state mismatch, denied consent, failed exchange) lands the
// browser on /login.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.logger.Warn("google callback received but sign-in is not configured")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	query := r.URL.Query()
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("google callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	result, err := h.auth.LoginWithGoogle(r.Context(), query.Get("code"))
	if err != nil {
		logFailure(h.logger, r, "google login failed", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := h.sessions.Establish(w, r, identityFor(result)); err != nil {
		logFailure(h.logger, r, "google login: establishing session", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// HandleLogout ends the session. It always redirects home, with or
// without a session.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(w, r); err != nil {
		logFailure(h.logger, r, "logout: ending session", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// signIn establishes a session for result and redirects to /secrets, or to
// fallback when the session cannot be stored.
func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, result *service.AuthResult, fallback string) {
	if err := h.sessions.Establish(w, r, identityFor(result)); err != nil {
		logFailure(h.logger, r, "establishing session", err)
		seeOther(w, r, fallback)
		return
	}
	seeOther(w, r, "/secrets")
}

func identityFor(result *service.AuthResult) session.Identity {
	return session.Identity{
		UserID:   result.User.ID,
		Username: result.User.Username,
		Name:     result.Name,
	}
}
