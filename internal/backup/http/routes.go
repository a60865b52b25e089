package backuphttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the backup endpoints under /backup.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/backup", func(r chi.Router) {
		r.Get("/", h.handleDownload)
		r.Post("/restore", h.handleRestore)
		r.Get("/cloud", h.handleTransports)
		r.Post("/cloud/{transport}/upload", h.handleCloudUpload)
		r.Post("/cloud/{transport}/restore", h.handleCloudRestore)
	})
}
