package shared

import (
	"context"
	"errors"
	"time"
)

// ErrAuditIncomplete is returned for records missing action, entity or entity id.
var ErrAuditIncomplete = errors.New("shared: audit log requires action, entity and entity_id")

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditSink persists audit records. store.Repository implements it.
type AuditSink interface {
	InsertAuditLog(ctx context.Context, log AuditLog) error
}

// AuditLogger completes audit records from the request context before
// handing them to the sink.
type AuditLogger struct {
	sink AuditSink
	now  func() time.Time
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(sink AuditSink) *AuditLogger {
	return &AuditLogger{sink: sink, now: time.Now}
}

// Record persists the log entry. A blank actor is taken from ctx.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.sink == nil {
		return errors.New("shared: audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return ErrAuditIncomplete
	}
	if log.Actor == "" {
		log.Actor = ActorFromContext(ctx)
	}
	if log.At.IsZero() {
		log.At = l.now().UTC()
	}
	return l.sink.InsertAuditLog(ctx, log)
}
