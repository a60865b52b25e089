package profilehttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/weighcheck/weighcheck/internal/kvstore"
	"github.com/weighcheck/weighcheck/internal/profile"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := NewHandler(nil, profile.NewService(kvstore.NewRedisStore(client, "test")))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestProfileRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodPut, "/profile/", `{"name":" Ana ","store":"Loja 12","email":"ana@example.com"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodGet, "/profile/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var p profile.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, "Ana", p.Name)
	require.Equal(t, "Loja 12", p.Store)

	rr = do(t, router, http.MethodPut, "/profile/", `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "email is invalid")
}

func TestPreferences(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/preferences", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"theme":"light","language":"pt"}`, rr.Body.String())

	rr = do(t, router, http.MethodPut, "/preferences", `{"theme":"dark","language":"en"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodGet, "/preferences", "")
	require.JSONEq(t, `{"theme":"dark","language":"en"}`, rr.Body.String())

	rr = do(t, router, http.MethodPut, "/preferences", `{"theme":"sepia","language":"en"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLinks(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/profile/links", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{}`, rr.Body.String())

	rr = do(t, router, http.MethodPut, "/profile/links/Google", `{"account":"ana@example.com"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"google":"ana@example.com"}`, rr.Body.String())

	rr = do(t, router, http.MethodPut, "/profile/links/google", `{"account":""}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{}`, rr.Body.String())

	rr = do(t, router, http.MethodPut, "/profile/links/bad-provider!", `{"account":"x"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
