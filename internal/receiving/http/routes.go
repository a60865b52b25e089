package receivinghttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the weighing, draft, knowledge and label-scan endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/weighings", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleSave)
		r.Post("/preview", h.handlePreview)
		r.Post("/delete", h.handleBulkDelete)
		r.Get("/export.csv", h.handleExportCSV)
		r.Get("/export.xlsx", h.handleExportXLSX)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Get("/{id}/ticket.pdf", h.handleTicket)
	})
	r.Route("/drafts/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetDraft)
		r.Put("/", h.handlePutDraft)
		r.Delete("/", h.handleDeleteDraft)
		r.Post("/suggestions/accept", h.handleAcceptSuggestion)
	})
	r.Get("/knowledge", h.handleKnowledge)
	r.Get("/knowledge/predict", h.handlePredict)
	r.Post("/labelscan", h.handleLabelScan)
}
