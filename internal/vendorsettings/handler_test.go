package vendorsettings

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tradedesk/backoffice/internal/platform/httpx"
	"github.com/tradedesk/backoffice/internal/store"
)

func newTestRouter(repo *memoryStore) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(repo, Options{Logger: logger}))
	r := chi.NewRouter()
	r.Route("/vendor-settings", h.MountRoutes)
	return r
}

const saveBody = `{
	"balance_id": 1,
	"balance_entry_id": 2,
	"vendor_id": 3,
	"discount": "10",
	"payment_terms": "30 hari",
	"dp_type": "amount",
	"dp_value": "200000",
	"vendor_letter_number": "SP/001/2024",
	"vendor_letter_date": "2024-05-10"
}`

func TestHandlerSaveSynced(t *testing.T) {
	repo := newMemoryStore()
	srv := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPut, "/vendor-settings/", strings.NewReader(saveBody))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Synced  bool `json:"synced"`
		Setting struct {
			DPType string `json:"dp_type"`
		} `json:"setting"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Synced)
	require.Equal(t, "amount", resp.Setting.DPType)
	require.Equal(t, "SP/001/2024", repo.items[0].OfferingLetterNumber)
}

func TestHandlerSavePartialReturnsAccepted(t *testing.T) {
	repo := newMemoryStore()
	repo.bulkErr = &store.Error{Op: "bulk update balance items", Err: errors.New("connection reset")}
	srv := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPut, "/vendor-settings/", strings.NewReader(saveBody))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp saveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Synced)
	require.Equal(t, "settings saved, items not yet synced", resp.Message)
	require.Len(t, repo.settings, 1)
}

func TestHandlerSaveValidationProblem(t *testing.T) {
	srv := newTestRouter(newMemoryStore())

	body := `{"balance_id": 1, "balance_entry_id": 2, "vendor_id": 3, "discount": "150"}`
	req := httptest.NewRequest(http.MethodPut, "/vendor-settings/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "must be between 0 and 100", problem.Errors["discount"])
}

func TestHandlerSaveMalformedBody(t *testing.T) {
	srv := newTestRouter(newMemoryStore())

	req := httptest.NewRequest(http.MethodPut, "/vendor-settings/", strings.NewReader(`{"unknown": true}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetDefaultsAndBadKey(t *testing.T) {
	srv := newTestRouter(newMemoryStore())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vendor-settings/1/2/3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"vendor_id":3`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vendor-settings/1/x/3", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerPropagate(t *testing.T) {
	repo := newMemoryStore()
	srv := newTestRouter(repo)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vendor-settings/1/2/3/propagate", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/vendor-settings/", strings.NewReader(saveBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vendor-settings/1/2/3/propagate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"updated":2}`, rec.Body.String())
}
