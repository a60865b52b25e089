package profilehttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers profile, preference and account-link endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/profile", func(r chi.Router) {
		r.Get("/", h.handleGetProfile)
		r.Put("/", h.handlePutProfile)
		r.Get("/links", h.handleGetLinks)
		r.Put("/links/{provider}", h.handlePutLink)
	})
	r.Get("/preferences", h.handleGetPreferences)
	r.Put("/preferences", h.handlePutPreferences)
}
