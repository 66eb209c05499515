package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/secrets-board/internal/service"
	"github.com/sakif/secrets-board/internal/session"
)

// SecretHandler serves the board and the submission form. Every route it
// owns is mounted behind session.RequireAuth.
type SecretHandler struct {
	secrets  *service.SecretService
	renderer *Renderer
	logger   *slog.Logger
}

func NewSecretHandler(secrets *service.SecretService, renderer *Renderer, logger *slog.Logger) *SecretHandler {
	return &SecretHandler{secrets: secrets, renderer: renderer, logger: logger}
}

// HandleList renders every user's secrets.
//
// HTTP: GET /secrets
func (h *SecretHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.secrets.ListAll(r.Context())
	if err != nil {
		logFailure(h.logger, r, "listing secrets", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	data := pageData(r, false)
	data.Users = users
	h.renderer.Render(w, http.StatusOK, PageSecrets, data)
}

// HandleSubmitForm renders the submission form.
//
// HTTP: GET /submit
func (h *SecretHandler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, PageSubmit, pageData(r, false))
}

// HandleSubmit appends the posted secret to the signed-in user.
//
// HTTP: POST /submit (secret)
func (h *SecretHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		logFailure(h.logger, r, "submit: parsing form", err)
		seeOther(w, r, "/submit")
		return
	}

	if err := h.secrets.Submit(r.Context(), identity.UserID, r.PostFormValue("secret")); err != nil {
		logFailure(h.logger, r, "submit failed", err)
		seeOther(w, r, "/submit")
		return
	}

	seeOther(w, r, "/secrets")
}
