package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// PageHandler serves the static form pages.
type PageHandler struct {
	renderer      *Renderer
	googleEnabled bool
}

func NewPageHandler(renderer *Renderer, googleEnabled bool) *PageHandler {
	return &PageHandler{renderer: renderer, googleEnabled: googleEnabled}
}

// HandleHome renders the landing page. GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, PageHome, pageData(r, h.googleEnabled))
}

// HandleLoginForm renders the login form. GET /login
func (h *PageHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, PageLogin, pageData(r, h.googleEnabled))
}

// HandleRegisterForm renders the registration form. GET /register
func (h *PageHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, PageRegister, pageData(r, h.googleEnabled))
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers load balancer health checks.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleHealth reports 200 "ok" when the database answers a ping and 503
// otherwise. GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}
