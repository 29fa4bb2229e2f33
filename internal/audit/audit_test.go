package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tradedesk/backoffice/internal/platform/httpx"
	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/store"
)

type stubAuditRepo struct {
	logs    []shared.AuditLog
	err     error
	lastArg store.AuditQuery
}

func (s *stubAuditRepo) ListAuditLogs(ctx context.Context, q store.AuditQuery) ([]shared.AuditLog, error) {
	s.lastArg = q
	return s.logs, s.err
}

func sampleLogs(n int) []shared.AuditLog {
	logs := make([]shared.AuditLog, 0, n)
	for i := 0; i < n; i++ {
		logs = append(logs, shared.AuditLog{
			Actor:    "dina",
			Action:   "VENDOR_SETTING_SAVE",
			Entity:   "vendor_setting",
			EntityID: "1/2/3",
			Meta:     map[string]any{"dp_type": "percentage"},
			At:       time.Date(2024, 5, 10-i, 8, 0, 0, 0, time.UTC),
		})
	}
	return logs
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubAuditRepo{logs: sampleLogs(3)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Entity: " vendor_setting ", Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.Equal(t, PagingInfo{Page: 2, PageSize: 2, HasNext: true, PrevPage: 1, NextPage: 3}, result.Paging)
	require.Equal(t, int32(3), repo.lastArg.Limit)
	require.Equal(t, int32(2), repo.lastArg.Offset)
	require.True(t, repo.lastArg.Entity.Valid)
	require.Equal(t, "vendor_setting", repo.lastArg.Entity.String)
	require.False(t, repo.lastArg.Actor.Valid)
	require.False(t, repo.lastArg.From.Valid)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubAuditRepo{}
	_, err := NewService(repo).Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, int32(maxPageSize+1), repo.lastArg.Limit)
	require.Equal(t, int32(0), repo.lastArg.Offset)
}

func TestServiceExportIsUnbounded(t *testing.T) {
	repo := &stubAuditRepo{logs: sampleLogs(2)}
	rows, err := NewService(repo).Export(context.Background(), TimelineFilters{Actor: "dina"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Zero(t, repo.lastArg.Limit)
	require.Equal(t, "dina", repo.lastArg.Actor.String)
}

func TestServiceWithoutRepository(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	require.Error(t, err)
}

func serveAudit(t *testing.T, repo *stubAuditRepo, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo))
	h.now = func() time.Time { return time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit-logs", h.MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandlerTimelineDefaultsToLastWeek(t *testing.T) {
	repo := &stubAuditRepo{logs: sampleLogs(1)}
	rec := serveAudit(t, repo, "/audit-logs/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
	require.Equal(t, "1/2/3", body.Rows[0].EntityID)
	require.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), repo.lastArg.From.Time)
	require.Equal(t, time.Date(2024, 5, 20, 23, 59, 59, 999999999, time.UTC), repo.lastArg.To.Time)
}

func TestHandlerTimelineCSV(t *testing.T) {
	repo := &stubAuditRepo{logs: sampleLogs(1)}
	rec := serveAudit(t, repo, "/audit-logs/?format=csv&entity_id=1/2/3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "At,Actor,Action,Entity,Entity ID,Meta", lines[0])
	require.Equal(t, `2024-05-10T08:00:00Z,dina,VENDOR_SETTING_SAVE,vendor_setting,1/2/3,"{""dp_type"":""percentage""}"`, lines[1])
	require.Equal(t, "1/2/3", repo.lastArg.EntityID.String)
}

func TestHandlerTimelineRejectsBadFilters(t *testing.T) {
	for target, field := range map[string]string{
		"/audit-logs/?from=2024-05-10&to=2024-05-01": "to",
		"/audit-logs/?from=2024-01-01&to=2024-05-01": "from",
		"/audit-logs/?to=20-05-2024":                 "to",
		"/audit-logs/?page=0":                        "page",
		"/audit-logs/?page_size=abc":                 "page_size",
	} {
		rec := serveAudit(t, &stubAuditRepo{}, target)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, target)

		var problem httpx.ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem), target)
		require.Contains(t, problem.Errors, field, target)
	}
}

func TestHandlerTimelineStoreFailure(t *testing.T) {
	repo := &stubAuditRepo{err: &store.Error{Op: "list audit logs", Err: errors.New("conn reset")}}
	rec := serveAudit(t, repo, "/audit-logs/")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
