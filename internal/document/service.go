package document

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tradedesk/backoffice/internal/trading"
)

const batchConcurrency = 4

// StorePort is the slice of the entity store documents read from.
type StorePort interface {
	GetPurchaseOrder(ctx context.Context, id int64) (trading.PurchaseOrder, map[int64]trading.Quotation, error)
	ListBalanceItems(ctx context.Context, balanceIDs []int64) ([]trading.BalanceItem, error)
	GetVendorSetting(ctx context.Context, key trading.VendorKey) (*trading.VendorSetting, error)
}

// Service loads and assembles purchase order documents.
type Service struct {
	store  StorePort
	ppn    decimal.Decimal
	logger *slog.Logger
}

// NewService constructs the document service.
func NewService(repo StorePort, ppn decimal.Decimal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: repo, ppn: ppn, logger: logger}
}

// PurchaseOrder assembles the document of one PO.
func (s *Service) PurchaseOrder(ctx context.Context, id int64) (PurchaseOrderDocument, error) {
	po, quotations, err := s.store.GetPurchaseOrder(ctx, id)
	if err != nil {
		return PurchaseOrderDocument{}, err
	}
	pos := []trading.PurchaseOrder{po}

	var items []trading.BalanceItem
	if ids := trading.BalanceIDs(pos, quotations); len(ids) > 0 {
		items, err = s.store.ListBalanceItems(ctx, ids)
		if err != nil {
			return PurchaseOrderDocument{}, err
		}
	}
	resolved := trading.ResolveItems(po, po.Quotations, quotations, items)

	var setting *trading.VendorSetting
	if key, ok := SettingKey(po, resolved); ok {
		setting, err = s.store.GetVendorSetting(ctx, key)
		if err != nil {
			return PurchaseOrderDocument{}, err
		}
	}
	return Assemble(po, trading.SortByVendorName(resolved), setting, s.ppn), nil
}

// PurchaseOrders assembles several documents concurrently, keeping the
// order of ids. The first failure cancels the rest.
func (s *Service) PurchaseOrders(ctx context.Context, ids []int64) ([]PurchaseOrderDocument, error) {
	docs := make([]PurchaseOrderDocument, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			doc, err := s.PurchaseOrder(ctx, id)
			if err != nil {
				s.logger.Warn("assemble purchase order document", slog.Int64("po_id", id), slog.Any("error", err))
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
