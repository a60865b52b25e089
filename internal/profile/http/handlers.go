package profilehttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/weighcheck/weighcheck/internal/platform/httpx"
	"github.com/weighcheck/weighcheck/internal/profile"
)

// Service is the profile contract consumed by the handlers.
type Service interface {
	Profile(ctx context.Context) (profile.Profile, error)
	UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error)
	Preferences(ctx context.Context) (profile.Preferences, error)
	UpdatePreferences(ctx context.Context, p profile.Preferences) (profile.Preferences, error)
	Links(ctx context.Context) (profile.Links, error)
	SetLink(ctx context.Context, provider, account string) (profile.Links, error)
}

// Handler serves the station profile.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Profile(r.Context())
	if err != nil {
		h.respondError(w, "load profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var in profile.Profile
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.UpdateProfile(r.Context(), in)
	if err != nil {
		h.respondError(w, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Preferences(r.Context())
	if err != nil {
		h.respondError(w, "load preferences", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var in profile.Preferences
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.UpdatePreferences(r.Context(), in)
	if err != nil {
		h.respondError(w, "update preferences", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleGetLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.Links(r.Context())
	if err != nil {
		h.respondError(w, "load links", err)
		return
	}
	httpx.JSON(w, http.StatusOK, links)
}

func (h *Handler) handlePutLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	links, err := h.service.SetLink(r.Context(), chi.URLParam(r, "provider"), req.Account)
	if err != nil {
		h.respondError(w, "set link", err)
		return
	}
	httpx.JSON(w, http.StatusOK, links)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, httpx.ErrValidation) {
		h.logger.Warn(op, slog.Any("error", err))
	} else {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
