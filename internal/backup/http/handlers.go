package backuphttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/weighcheck/weighcheck/internal/backup"
	"github.com/weighcheck/weighcheck/internal/platform/httpx"
)

const maxBackupBytes = 32 << 20

// Codec is the local serialize/restore contract.
type Codec interface {
	Serialize(ctx context.Context) ([]byte, error)
	Restore(ctx context.Context, payload []byte) error
}

// Cloud is the transport-facing contract.
type Cloud interface {
	Transports() []string
	Upload(ctx context.Context, name string) error
	Restore(ctx context.Context, name string) error
}

// Handler serves backup downloads, restores and cloud sync.
type Handler struct {
	logger *slog.Logger
	codec  Codec
	cloud  Cloud
	now    func() time.Time
}

// NewHandler builds the handler. cloud may be nil when no transport is configured.
func NewHandler(logger *slog.Logger, codec Codec, cloud Cloud) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, codec: codec, cloud: cloud, now: time.Now}
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	payload, err := h.codec.Serialize(r.Context())
	if err != nil {
		h.respondError(w, "serialize backup", err)
		return
	}
	filename := fmt.Sprintf("weighcheck-backup-%s.json", h.now().Format("2006-01-02"))
	httpx.Attachment(w, "application/json", filename, payload)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(r)
	if err != nil {
		h.respondError(w, "read backup", err)
		return
	}
	if err := h.codec.Restore(r.Context(), payload); err != nil {
		h.respondError(w, "restore backup", err)
		return
	}
	h.logger.Info("backup restored from file", slog.Int("bytes", len(payload)))
	httpx.JSON(w, http.StatusOK, map[string]any{"restored": true})
}

func (h *Handler) handleTransports(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if h.cloud != nil {
		names = h.cloud.Transports()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transports": names})
}

func (h *Handler) handleCloudUpload(w http.ResponseWriter, r *http.Request) {
	if h.cloud == nil {
		httpx.RespondError(w, fmt.Errorf("%w: cloud backup", httpx.ErrUnavailable))
		return
	}
	name := chi.URLParam(r, "transport")
	if err := h.cloud.Upload(r.Context(), name); err != nil {
		h.respondError(w, "cloud upload", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"uploaded": true, "transport": name})
}

func (h *Handler) handleCloudRestore(w http.ResponseWriter, r *http.Request) {
	if h.cloud == nil {
		httpx.RespondError(w, fmt.Errorf("%w: cloud backup", httpx.ErrUnavailable))
		return
	}
	name := chi.URLParam(r, "transport")
	if err := h.cloud.Restore(r.Context(), name); err != nil {
		h.respondError(w, "cloud restore", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"restored": true, "transport": name})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, backup.ErrInvalidBackup):
		h.logger.Warn(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Invalid Backup", "invalid backup file")
		return
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrUpstream):
		h.logger.Warn(op, slog.Any("error", err))
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// readPayload accepts a raw JSON body or a multipart upload in field "file".
func readPayload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBackupBytes); err != nil {
			return nil, fmt.Errorf("%w: multipart: %v", httpx.ErrValidation, err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: file is required", httpx.ErrValidation)
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxBackupBytes))
	}
	if r.Body == nil {
		return nil, fmt.Errorf("%w: empty body", httpx.ErrValidation)
	}
	return io.ReadAll(io.LimitReader(r.Body, maxBackupBytes))
}
