package receivinghttp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/weighcheck/weighcheck/internal/draft"
	"github.com/weighcheck/weighcheck/internal/knowledge"
	"github.com/weighcheck/weighcheck/internal/kvstore"
	"github.com/weighcheck/weighcheck/internal/labelscan"
	"github.com/weighcheck/weighcheck/internal/profile"
	"github.com/weighcheck/weighcheck/internal/receiving"
	"github.com/weighcheck/weighcheck/internal/records"
)

type stubScanner struct {
	ex  labelscan.Extraction
	err error
}

func (s stubScanner) Scan(context.Context, []byte) (labelscan.Extraction, error) {
	return s.ex, s.err
}

func newTestRouter(t *testing.T, scanner receiving.LabelScanner) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	kv := kvstore.NewRedisStore(client, "test")

	svc := receiving.NewService(receiving.Deps{
		Records:   records.NewStore(kv),
		Knowledge: knowledge.NewService(kv),
		Profiles:  profile.NewService(kv),
		Drafts:    draft.NewStore(),
		Scanner:   scanner,
		Namespace: "test",
	})
	h := NewHandler(nil, svc, time.UTC)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func saveWeighing(t *testing.T, router http.Handler, form map[string]any) receiving.SaveResult {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/weighings", map[string]any{"form": form})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res receiving.SaveResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func TestSaveListGetDelete(t *testing.T) {
	router := newTestRouter(t, nil)

	res := saveWeighing(t, router, map[string]any{
		"supplier": "ACME", "product": "tomato", "grossWeight": "15,5", "noteWeight": "10",
		"boxQty": 10, "unitTaraGrams": 500,
	})
	require.Equal(t, "error", string(res.Record.Status))
	require.Equal(t, 10.5, res.Record.NetWeight)
	require.Equal(t, receiving.SyncDisabled, res.Sync)

	rr := do(t, router, http.MethodGet, "/weighings", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)

	rr = do(t, router, http.MethodGet, "/weighings/"+res.Record.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodDelete, "/weighings/"+res.Record.ID, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodGet, "/weighings/"+res.Record.ID, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestSaveRejectsIncompleteForm(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := do(t, router, http.MethodPost, "/weighings", map[string]any{"form": map[string]any{"supplier": "ACME"}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "product is required")

	rr = do(t, router, http.MethodPost, "/weighings/preview", map[string]any{"supplier": "ACME", "grossWeight": "12+3"})
	require.Equal(t, http.StatusOK, rr.Code)
	var p receiving.Preview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.False(t, p.CanSave)
	require.Equal(t, 15.0, p.Calculation.GrossWeight)
}

func TestBulkDelete(t *testing.T) {
	router := newTestRouter(t, nil)
	form := map[string]any{"supplier": "ACME", "product": "ONION", "grossWeight": "10", "noteWeight": "10"}
	first := saveWeighing(t, router, form)
	saveWeighing(t, router, form)

	rr := do(t, router, http.MethodPost, "/weighings/delete", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPost, "/weighings/delete", map[string]any{"ids": []string{first.Record.ID}})
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"deleted":1}`, rr.Body.String())

	rr = do(t, router, http.MethodPost, "/weighings/delete", map[string]any{"all": true})
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"deleted":1}`, rr.Body.String())
}

func TestExports(t *testing.T) {
	router := newTestRouter(t, nil)
	res := saveWeighing(t, router, map[string]any{"supplier": "ACME", "product": "ONION", "grossWeight": "10", "noteWeight": "9.9"})

	rr := do(t, router, http.MethodGet, "/weighings/export.csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Disposition"), `filename="weighings-2024-05-01.csv"`)
	rows, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "ONION", rows[1][2])
	require.Equal(t, "0.100", rows[1][9])

	rr = do(t, router, http.MethodGet, "/weighings/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")))

	rr = do(t, router, http.MethodGet, "/weighings/"+res.Record.ID+"/ticket.pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
}

func TestDraftEndpoints(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := do(t, router, http.MethodGet, "/drafts/d1", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodPut, "/drafts/d1", map[string]any{
		"supplier": "ACME", "product": "TOMATO", "boxQty": 10, "standardUnitWeight": 1.2,
		"unitTaraGrams": 50, "noteWeight": "11", "grossWeight": "",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var p receiving.Preview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.True(t, p.Suggestion.ShowNote)

	rr = do(t, router, http.MethodPost, "/drafts/d1/suggestions/accept", map[string]any{"target": "all"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, "12.00", p.Form.NoteWeightText)
	require.Equal(t, "12.50", p.Form.GrossWeightText)
	require.Equal(t, 12.0, p.Calculation.NetWeight)

	rr = do(t, router, http.MethodPost, "/drafts/d1/suggestions/accept", map[string]any{"target": "tare"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodDelete, "/drafts/d1", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, router, http.MethodGet, "/drafts/d1", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestKnowledgeEndpoints(t *testing.T) {
	router := newTestRouter(t, nil)
	saveWeighing(t, router, map[string]any{
		"supplier": "ACME", "product": "TOMATO", "grossWeight": "10.35", "noteWeight": "10",
		"boxQty": 1, "unitTaraGrams": 350,
	})

	rr := do(t, router, http.MethodGet, "/knowledge/predict", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodGet, "/knowledge/predict?supplier=ACME", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var pred knowledge.Prediction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pred))
	require.Equal(t, "TOMATO", pred.SuggestedProduct)

	rr = do(t, router, http.MethodGet, "/knowledge/predict?supplier=ACME&product=tomato", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pred))
	require.Equal(t, 0.35, pred.SuggestedTaraBox)

	rr = do(t, router, http.MethodGet, "/knowledge", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "ACME::TOMATO")
}

func scanRequest(t *testing.T, draftID string) *http.Request {
	t.Helper()
	return scanRequestWithImage(t, draftID, []byte("jpeg bytes"))
}

func scanRequestWithImage(t *testing.T, draftID string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "label.jpg")
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	if draftID != "" {
		require.NoError(t, mw.WriteField("draft_id", draftID))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/labelscan", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestLabelScan(t *testing.T) {
	router := newTestRouter(t, stubScanner{ex: labelscan.Extraction{Supplier: "ACME", Product: "Tomato", Batch: "L1"}})
	rr := do(t, router, http.MethodPut, "/drafts/d1", map[string]any{"noteWeight": "10"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, scanRequest(t, "d1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res receiving.ScanResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotNil(t, res.Draft)
	require.Equal(t, "ACME", res.Draft.Form.Supplier)
	require.Equal(t, "L1", res.Draft.Form.Batch)
	require.Equal(t, "10", res.Draft.Form.NoteWeightText)
}

func TestLabelScanFailure(t *testing.T) {
	router := newTestRouter(t, stubScanner{err: labelscan.ErrScanFailed})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, scanRequest(t, ""))
	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Contains(t, rr.Body.String(), ScanWarning)

	unconfigured := newTestRouter(t, nil)
	rr = httptest.NewRecorder()
	unconfigured.ServeHTTP(rr, scanRequest(t, ""))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestLabelScanRejectsOversizedUploads(t *testing.T) {
	router := newTestRouter(t, stubScanner{ex: labelscan.Extraction{Supplier: "ACME"}})

	// past the body cap: the reader stops before the form is parsed
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, scanRequestWithImage(t, "", bytes.Repeat([]byte{0xff}, maxScanBodyBytes+1)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// inside the body cap but over the image limit
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, scanRequestWithImage(t, "", bytes.Repeat([]byte{0xff}, maxImageBytes+1)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "image exceeds")
}
