package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tradedesk/backoffice/internal/shared"
)

// AuditQuery filters audit_logs. Invalid fields are ignored; a zero Limit
// returns every matching row.
type AuditQuery struct {
	From     pgtype.Timestamptz
	To       pgtype.Timestamptz
	Actor    pgtype.Text
	Entity   pgtype.Text
	Action   pgtype.Text
	EntityID pgtype.Text
	Offset   int32
	Limit    int32
}

// InsertAuditLog appends one record to audit_logs.
func (r *Repository) InsertAuditLog(ctx context.Context, log shared.AuditLog) error {
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return fmt.Errorf("store: encode audit meta: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`, log.Actor, log.Action, log.Entity, log.EntityID, meta, log.At)
	if err != nil {
		return wrap("insert audit log", err)
	}
	return nil
}

// ListAuditLogs returns matching audit records, newest first.
func (r *Repository) ListAuditLogs(ctx context.Context, q AuditQuery) ([]shared.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT actor, action, entity, entity_id, meta, occurred_at
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3::text IS NULL OR actor = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR action = $5)
  AND ($6::text IS NULL OR entity_id = $6)
ORDER BY occurred_at DESC, id DESC
OFFSET $7
LIMIT NULLIF($8::int, 0)`, q.From, q.To, q.Actor, q.Entity, q.Action, q.EntityID, q.Offset, q.Limit)
	if err != nil {
		return nil, wrap("list audit logs", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shared.AuditLog, error) {
		var log shared.AuditLog
		var meta []byte
		if err := row.Scan(&log.Actor, &log.Action, &log.Entity, &log.EntityID, &meta, &log.At); err != nil {
			return log, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &log.Meta); err != nil {
				return log, err
			}
		}
		return log, nil
	})
	if err != nil {
		return nil, wrap("list audit logs", err)
	}
	return logs, nil
}
