package receivinghttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/weighcheck/weighcheck/internal/draft"
	"github.com/weighcheck/weighcheck/internal/knowledge"
	"github.com/weighcheck/weighcheck/internal/labelscan"
	"github.com/weighcheck/weighcheck/internal/platform/httpx"
	"github.com/weighcheck/weighcheck/internal/receiving"
	"github.com/weighcheck/weighcheck/internal/weighing"
	"github.com/weighcheck/weighcheck/internal/weighing/export"
)

const maxImageBytes = 15 << 20

// maxScanBodyBytes leaves room for the multipart envelope and form fields.
const maxScanBodyBytes = maxImageBytes + 1<<20

// ScanWarning is shown to the operator when a label could not be read.
const ScanWarning = "label could not be read; fill the form manually"

// Service is the receiving workflow consumed by the handlers.
type Service interface {
	Preview(ctx context.Context, f draft.Form) (receiving.Preview, error)
	Save(ctx context.Context, in receiving.SaveInput) (receiving.SaveResult, error)
	List(ctx context.Context) ([]weighing.Record, error)
	Get(ctx context.Context, id string) (weighing.Record, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string, all bool) (int, error)
	Draft(ctx context.Context, id string) (receiving.Preview, error)
	PutDraft(ctx context.Context, id string, f draft.Form) (receiving.Preview, error)
	DiscardDraft(id string)
	AcceptSuggestion(ctx context.Context, id string, target draft.Target) (receiving.Preview, error)
	ScanLabel(ctx context.Context, image []byte, draftID string) (receiving.ScanResult, error)
	Knowledge(ctx context.Context) (knowledge.Base, error)
	Predict(ctx context.Context, supplier, product string) (knowledge.Prediction, error)
}

// Handler serves the receiving API.
type Handler struct {
	logger  *slog.Logger
	service Service
	loc     *time.Location
	now     func() time.Time
}

// NewHandler builds the handler. loc is the timezone used by exports.
func NewHandler(logger *slog.Logger, service Service, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, loc: loc, now: time.Now}
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var f draft.Form
	if err := httpx.DecodeJSON(r, &f); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Preview(r.Context(), f)
	if err != nil {
		h.respondError(w, "preview weighing", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

type saveRequest struct {
	DraftID string     `json:"draftId"`
	Form    draft.Form `json:"form"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Save(r.Context(), receiving.SaveInput{DraftID: req.DraftID, Form: req.Form})
	if err != nil {
		h.respondError(w, "save weighing", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list weighings", err)
		return
	}
	if recs == nil {
		recs = []weighing.Record{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": recs, "count": len(recs)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get weighing", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete weighing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

func (h *Handler) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !req.All && len(req.IDs) == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: ids or all is required", httpx.ErrValidation))
		return
	}
	n, err := h.service.DeleteMany(r.Context(), req.IDs, req.All)
	if err != nil {
		h.respondError(w, "bulk delete weighings", err)
		return
	}
	h.logger.Info("weighings deleted", slog.Int("count", n), slog.Bool("all", req.All))
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "text/csv; charset=utf-8", "csv", export.WriteCSV)
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", export.WriteXLSX)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, contentType, ext string, write func(io.Writer, []weighing.Record, *time.Location) error) {
	recs, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "export weighings", err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, recs, h.loc); err != nil {
		h.respondError(w, "render export", err)
		return
	}
	filename := fmt.Sprintf("weighings-%s.%s", h.now().In(h.loc).Format("2006-01-02"), ext)
	httpx.Attachment(w, contentType, filename, buf.Bytes())
}

func (h *Handler) handleTicket(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get weighing", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteTicket(&buf, rec, h.loc); err != nil {
		h.respondError(w, "render ticket", err)
		return
	}
	httpx.Attachment(w, "application/pdf", fmt.Sprintf("ticket-%s.pdf", rec.ID), buf.Bytes())
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Draft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get draft", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	var f draft.Form
	if err := httpx.DecodeJSON(r, &f); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.PutDraft(r.Context(), chi.URLParam(r, "id"), f)
	if err != nil {
		h.respondError(w, "put draft", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	h.service.DiscardDraft(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target draft.Target `json:"target"`
	}
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	p, err := h.service.AcceptSuggestion(r.Context(), chi.URLParam(r, "id"), req.Target)
	if err != nil {
		h.respondError(w, "accept suggestion", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	base, err := h.service.Knowledge(r.Context())
	if err != nil {
		h.respondError(w, "load knowledge", err)
		return
	}
	httpx.JSON(w, http.StatusOK, base)
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	supplier := q.Get("supplier")
	if supplier == "" {
		httpx.RespondError(w, fmt.Errorf("%w: supplier is required", httpx.ErrValidation))
		return
	}
	pred, err := h.service.Predict(r.Context(), supplier, q.Get("product"))
	if err != nil {
		h.respondError(w, "predict", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pred)
}

func (h *Handler) handleLabelScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxScanBodyBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: multipart: %v", httpx.ErrValidation, err))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: image is required", httpx.ErrValidation))
		return
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		h.respondError(w, "read image", err)
		return
	}
	if len(image) > maxImageBytes {
		httpx.RespondError(w, fmt.Errorf("%w: image exceeds %d MB", httpx.ErrValidation, maxImageBytes>>20))
		return
	}

	res, err := h.service.ScanLabel(r.Context(), image, r.FormValue("draft_id"))
	if err != nil {
		if errors.Is(err, labelscan.ErrScanFailed) {
			h.logger.Warn("label scan", slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Scan Failed", ScanWarning)
			return
		}
		h.respondError(w, "label scan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrDuplicate), errors.Is(err, httpx.ErrUnavailable):
		h.logger.Warn(op, slog.Any("error", err))
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
