package backuphttp

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/weighcheck/weighcheck/internal/backup"
)

type stubCodec struct {
	payload  []byte
	restored []byte
	err      error
}

func (s *stubCodec) Serialize(context.Context) ([]byte, error) { return s.payload, nil }

func (s *stubCodec) Restore(_ context.Context, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	s.restored = payload
	return nil
}

type stubCloud struct {
	uploaded string
	err      error
}

func (s *stubCloud) Transports() []string { return []string{"drive", "relational"} }

func (s *stubCloud) Upload(_ context.Context, name string) error {
	s.uploaded = name
	return s.err
}

func (s *stubCloud) Restore(context.Context, string) error { return s.err }

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestDownloadAttachment(t *testing.T) {
	h := NewHandler(nil, &stubCodec{payload: []byte(`{"app":"weighcheck"}`)}, nil)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/backup/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Disposition"), "weighcheck-backup-2024-05-01.json")
	require.JSONEq(t, `{"app":"weighcheck"}`, rr.Body.String())
}

func TestRestoreInvalidFile(t *testing.T) {
	codec := &stubCodec{err: backup.ErrInvalidBackup}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/backup/restore", bytes.NewBufferString("garbage"))
	newRouter(NewHandler(nil, codec, nil)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Equal(t, "invalid backup file", problem["detail"])
}

func TestRestoreMultipart(t *testing.T) {
	codec := &stubCodec{}
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "backup.json")
	require.NoError(t, err)
	_, _ = part.Write([]byte(`{"app":"weighcheck","data":{}}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/backup/restore", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	newRouter(NewHandler(nil, codec, nil)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"app":"weighcheck","data":{}}`, string(codec.restored))
}

func TestCloudEndpoints(t *testing.T) {
	cloud := &stubCloud{}
	router := newRouter(NewHandler(nil, &stubCodec{}, cloud))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/backup/cloud/drive/upload", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "drive", cloud.uploaded)

	cloud.err = backup.ErrTransport
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/backup/cloud/drive/restore", nil))
	require.Equal(t, http.StatusBadGateway, rr.Code)

	cloud.err = backup.ErrNoRemoteBackup
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/backup/cloud/drive/restore", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	newRouter(NewHandler(nil, &stubCodec{}, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/backup/cloud/drive/upload", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
