package vendorsettings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/store"
	"github.com/tradedesk/backoffice/internal/trading"
)

// StorePort describes the entity store calls the saga performs.
type StorePort interface {
	GetVendorSetting(ctx context.Context, key trading.VendorKey) (*trading.VendorSetting, error)
	UpsertVendorSetting(ctx context.Context, setting trading.VendorSetting) error
	BulkUpdateBalanceItems(ctx context.Context, filter store.ItemFilter, patch store.OfferingPatch) (int64, error)
}

// RetryEnqueuer schedules a background retry of the propagation step.
type RetryEnqueuer interface {
	EnqueuePropagation(ctx context.Context, key trading.VendorKey) error
}

// CacheInvalidator drops cached reports after settings change.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// AuditPort records setting changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SyncObserver counts propagation outcomes.
type SyncObserver interface {
	ObserveVendorSync(result string)
}

// PartialSyncError reports a saved setting whose letter fields did not reach its items.
type PartialSyncError struct {
	Setting trading.VendorSetting
	Err     error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("vendorsettings: setting saved, items not yet synced: %v", e.Err)
}

func (e *PartialSyncError) Unwrap() error { return e.Err }

// Is matches shared.ErrPartialSync.
func (e *PartialSyncError) Is(target error) bool {
	return target == shared.ErrPartialSync
}

// Options carries optional collaborators.
type Options struct {
	Logger   *slog.Logger
	Retry    RetryEnqueuer
	Cache    CacheInvalidator
	Audit    AuditPort
	Observer SyncObserver
}

// Service saves vendor settings and propagates their letter fields onto balance items.
type Service struct {
	store    StorePort
	logger   *slog.Logger
	retry    RetryEnqueuer
	cache    CacheInvalidator
	audit    AuditPort
	observer SyncObserver
}

// NewService constructs the service.
func NewService(repo StorePort, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    repo,
		logger:   logger,
		retry:    opts.Retry,
		cache:    opts.Cache,
		audit:    opts.Audit,
		observer: opts.Observer,
	}
}

// Get returns the stored setting or the defaults an absent record implies.
func (s *Service) Get(ctx context.Context, key trading.VendorKey) (trading.VendorSetting, error) {
	setting, err := s.store.GetVendorSetting(ctx, key)
	if err != nil {
		return trading.VendorSetting{}, err
	}
	if setting == nil {
		return trading.DefaultVendorSetting(key), nil
	}
	return *setting, nil
}

// Save validates and upserts the setting, then overwrites the offering
// letter fields of the matching balance items. There is no transaction
// across the two writes: when the second fails the saved setting is
// returned together with a *PartialSyncError.
func (s *Service) Save(ctx context.Context, input SaveInput) (trading.VendorSetting, error) {
	setting, err := input.Setting()
	if err != nil {
		return trading.VendorSetting{}, err
	}
	if err := s.store.UpsertVendorSetting(ctx, setting); err != nil {
		return trading.VendorSetting{}, err
	}
	s.recordAudit(ctx, "VENDOR_SETTING_SAVE", setting)

	_, err = s.propagate(ctx, setting)
	s.bumpCache(ctx)
	if err != nil {
		s.logger.Warn("vendor setting propagation failed",
			slog.Int64("balance_id", setting.BalanceID),
			slog.Int64("balance_entry_id", setting.BalanceEntryID),
			slog.Int64("vendor_id", setting.VendorID),
			slog.Any("error", err))
		if s.retry != nil {
			if qerr := s.retry.EnqueuePropagation(ctx, setting.VendorKey); qerr != nil {
				s.logger.Warn("enqueue propagation retry", slog.Any("error", qerr))
			}
		}
		return setting, &PartialSyncError{Setting: setting, Err: err}
	}
	return setting, nil
}

// RetryPropagation re-runs only the propagation step from the stored setting.
// The step overwrites fields, so repeating it is safe.
func (s *Service) RetryPropagation(ctx context.Context, key trading.VendorKey) (int64, error) {
	setting, err := s.store.GetVendorSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	if setting == nil {
		return 0, fmt.Errorf("vendorsettings: setting %d/%d/%d: %w", key.BalanceID, key.BalanceEntryID, key.VendorID, shared.ErrNotFound)
	}
	n, err := s.propagate(ctx, *setting)
	if err != nil {
		return 0, err
	}
	s.bumpCache(ctx)
	return n, nil
}

func (s *Service) propagate(ctx context.Context, setting trading.VendorSetting) (int64, error) {
	n, err := s.store.BulkUpdateBalanceItems(ctx, setting.VendorKey, store.OfferingPatch{
		OfferingLetterNumber: setting.VendorLetterNumber,
		OfferingDate:         setting.VendorLetterDate,
	})
	if s.observer != nil {
		result := "synced"
		if err != nil {
			result = "partial"
		}
		s.observer.ObserveVendorSync(result)
	}
	return n, err
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump", slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, setting trading.VendorSetting) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "vendor_setting",
		EntityID: fmt.Sprintf("%d/%d/%d", setting.BalanceID, setting.BalanceEntryID, setting.VendorID),
		Meta: map[string]any{
			"discount":             setting.Discount.String(),
			"dp_type":              string(setting.DPType),
			"dp_value":             setting.DPValue.String(),
			"vendor_letter_number": setting.VendorLetterNumber,
		},
	})
	if err != nil {
		s.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}
