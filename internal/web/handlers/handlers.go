package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ninthcircle/diceroller/internal/config"
	"github.com/ninthcircle/diceroller/internal/ratelimit"
	"github.com/ninthcircle/diceroller/internal/repository"
	"github.com/ninthcircle/diceroller/internal/roller"
	"github.com/ninthcircle/diceroller/internal/web/auth"
	"github.com/ninthcircle/diceroller/internal/web/views"
)

type Handlers struct {
	cfg      *config.Config
	rolls    *roller.Service
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	views    *views.Engine
	logins   *ratelimit.Limiter
	oidc     *auth.OIDCProvider
	logger   *slog.Logger
}

func New(cfg *config.Config, rolls *roller.Service, users *repository.UserRepository, sessions *repository.SessionRepository, v *views.Engine, logins *ratelimit.Limiter, oidc *auth.OIDCProvider, logger *slog.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		rolls:    rolls,
		users:    users,
		sessions: sessions,
		views:    v,
		logins:   logins,
		oidc:     oidc,
		logger:   logger,
	}
}

// Health check
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	h.renderStatus(w, http.StatusOK, name, data)
}

// renderStatus writes a full page. Output is buffered so a template error
// does not leave a half written page behind.
func (h *Handlers) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.views.Render(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handlers) renderPartial(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.views.RenderPartial(&buf, name, data); err != nil {
		h.logger.Error("failed to render partial", "partial", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (h *Handlers) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) error(w http.ResponseWriter, status int, message string) {
	h.logger.Error("request error", "status", status, "message", message)
	http.Error(w, message, status)
}
