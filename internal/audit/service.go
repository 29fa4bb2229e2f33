package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Repository menyediakan akses baca ke audit_logs.
type Repository interface {
	ListAuditLogs(ctx context.Context, q store.AuditQuery) ([]shared.AuditLog, error)
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo Repository
}

// NewService membuat service audit timeline baru.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline mengambil data audit dengan paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	query := buildQuery(filters)
	query.Offset = int32((page - 1) * pageSize)
	query.Limit = int32(pageSize + 1)

	logs, err := s.repo.ListAuditLogs(ctx, query)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(logs) > pageSize
	if hasNext {
		logs = logs[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: mapRows(logs), Paging: paging}, nil
}

// Export mengambil seluruh data timeline tanpa paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	logs, err := s.repo.ListAuditLogs(ctx, buildQuery(filters))
	if err != nil {
		return nil, err
	}
	return mapRows(logs), nil
}

func buildQuery(filters TimelineFilters) store.AuditQuery {
	return store.AuditQuery{
		From:     toPgTime(filters.From),
		To:       toPgTime(filters.To),
		Actor:    optionalText(filters.Actor),
		Entity:   optionalText(filters.Entity),
		Action:   optionalText(filters.Action),
		EntityID: optionalText(filters.EntityID),
	}
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func mapRows(logs []shared.AuditLog) []TimelineRow {
	rows := make([]TimelineRow, 0, len(logs))
	for _, log := range logs {
		rows = append(rows, TimelineRow{
			At:       log.At,
			Actor:    log.Actor,
			Action:   log.Action,
			Entity:   log.Entity,
			EntityID: log.EntityID,
			Meta:     log.Meta,
		})
	}
	return rows
}
