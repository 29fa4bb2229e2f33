package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/tradedesk/backoffice/internal/jobs"
	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/trading"
)

const (
	// TaskVendorSettingReconcile sweeps settings whose items drifted from their letter fields.
	TaskVendorSettingReconcile = "vendor_settings:reconcile"

	defaultReconcileLimit = 200

	reconcileLockTTL = 10 * time.Minute
)

// SweepLocker serialises sweeps across worker replicas. *redislock.Client satisfies it.
type SweepLocker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// DriftLister finds vendor settings whose items are out of sync.
type DriftLister interface {
	ListDriftedVendorSettings(ctx context.Context, limit int) ([]trading.VendorKey, error)
}

// VendorReconcilePayload bounds one sweep.
type VendorReconcilePayload struct {
	Limit int `json:"limit"`
}

// NewVendorReconcileTask builds the periodic sweep task.
func NewVendorReconcileTask(limit int) (*asynq.Task, error) {
	body, err := json.Marshal(VendorReconcilePayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVendorSettingReconcile, body, asynq.Queue(QueueDefault)), nil
}

// VendorReconcileJob re-propagates drifted settings. It catches partial
// saves whose retry task was lost or exhausted.
type VendorReconcileJob struct {
	Store    DriftLister
	Settings Propagator
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	// Locker is optional; without it overlapping sweeps are possible.
	Locker SweepLocker
}

// NewVendorReconcileJob wires dependencies for the sweep handler.
func NewVendorReconcileJob(store DriftLister, settings Propagator, logger *slog.Logger, metrics *jobmetrics.Metrics) *VendorReconcileJob {
	return &VendorReconcileJob{Store: store, Settings: settings, Logger: logger, Metrics: metrics}
}

// Handle runs one sweep. Keys that fail are left for the next run.
func (j *VendorReconcileJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil || j.Settings == nil {
		return errors.New("vendor reconcile: handler not configured")
	}
	var payload VendorReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("vendor reconcile: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultReconcileLimit
	}

	tracker := j.Metrics.Track(TaskVendorSettingReconcile)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if j.Locker != nil {
		lock, lerr := j.Locker.Obtain(ctx, shared.ReconcileLockKey, reconcileLockTTL, nil)
		if errors.Is(lerr, redislock.ErrNotObtained) {
			logger.Info("vendor reconcile already running elsewhere, skipping")
			tracker.Skip()
			return nil
		}
		if lerr != nil {
			return fmt.Errorf("vendor reconcile: obtain lock: %w", lerr)
		}
		defer func() {
			if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil && !errors.Is(rerr, redislock.ErrLockNotHeld) {
				logger.Warn("release reconcile lock", slog.Any("error", rerr))
			}
		}()
	}
	keys, err := j.Store.ListDriftedVendorSettings(ctx, payload.Limit)
	if err != nil {
		logger.Error("list drifted vendor settings", slog.Any("error", err))
		return err
	}
	j.Metrics.SetDrifted(len(keys))
	var failed int
	var updated int64
	for _, key := range keys {
		n, perr := j.Settings.RetryPropagation(ctx, key)
		if perr != nil {
			failed++
			logger.Warn("reconcile vendor setting",
				slog.Int64("balance_id", key.BalanceID),
				slog.Int64("balance_entry_id", key.BalanceEntryID),
				slog.Int64("vendor_id", key.VendorID),
				slog.Any("error", perr))
			continue
		}
		updated += n
	}
	j.Metrics.AddPropagated(updated)
	logger.Info("vendor settings reconciled", slog.Int("settings", len(keys)), slog.Int64("items", updated), slog.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("vendor reconcile: %d of %d settings failed", failed, len(keys))
	}
	return nil
}
