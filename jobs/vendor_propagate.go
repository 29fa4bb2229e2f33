package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tradedesk/backoffice/internal/jobs"
	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/trading"
)

// Propagator re-runs the propagation step of a saved vendor setting.
type Propagator interface {
	RetryPropagation(ctx context.Context, key trading.VendorKey) (int64, error)
}

// VendorPropagateJob processes TaskVendorSettingPropagate tasks.
type VendorPropagateJob struct {
	Settings Propagator
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewVendorPropagateJob wires dependencies for the propagation handler.
func NewVendorPropagateJob(settings Propagator, logger *slog.Logger, metrics *jobmetrics.Metrics) *VendorPropagateJob {
	return &VendorPropagateJob{Settings: settings, Logger: logger, Metrics: metrics}
}

// Handle processes one propagation retry.
func (j *VendorPropagateJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Settings == nil {
		return errors.New("vendor propagate: handler not configured")
	}
	var payload VendorSettingPropagatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("vendor propagate: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskVendorSettingPropagate)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(
		slog.Int64("balance_id", payload.BalanceID),
		slog.Int64("balance_entry_id", payload.BalanceEntryID),
		slog.Int64("vendor_id", payload.VendorID),
	)
	updated, err := j.Settings.RetryPropagation(ctx, payload.Key())
	if errors.Is(err, shared.ErrNotFound) {
		logger.Warn("vendor setting vanished before propagation retry")
		return fmt.Errorf("vendor propagate: %v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		logger.Error("propagation retry failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPropagated(updated)
	logger.Info("vendor setting propagated", slog.Int64("items", updated))
	return nil
}

func (j *VendorPropagateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
