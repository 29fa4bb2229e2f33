package shared

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memorySink struct {
	logs []AuditLog
}

func (m *memorySink) InsertAuditLog(ctx context.Context, log AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func TestAuditLoggerFillsActorAndTime(t *testing.T) {
	sink := &memorySink{}
	logger := NewAuditLogger(sink)
	logger.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	ctx := ContextWithActor(context.Background(), "dina")
	require.NoError(t, logger.Record(ctx, AuditLog{Action: "VENDOR_SETTING_SAVE", Entity: "vendor_setting", EntityID: "1/2/3"}))
	require.NoError(t, logger.Record(context.Background(), AuditLog{Action: "X", Entity: "y", EntityID: "z", Actor: "cron"}))

	require.Len(t, sink.logs, 2)
	require.Equal(t, "dina", sink.logs[0].Actor)
	require.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), sink.logs[0].At)
	require.Equal(t, "cron", sink.logs[1].Actor)
}

func TestAuditLoggerRejectsIncompleteRecords(t *testing.T) {
	sink := &memorySink{}
	err := NewAuditLogger(sink).Record(context.Background(), AuditLog{Action: "X", Entity: "y"})
	require.ErrorIs(t, err, ErrAuditIncomplete)
	require.Empty(t, sink.logs)

	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(context.Background(), AuditLog{}))
}

func TestActorFromContextDefaultsToSystem(t *testing.T) {
	require.Equal(t, "system", ActorFromContext(context.Background()))
	require.Equal(t, "system", ActorFromContext(ContextWithActor(context.Background(), "")))
}
