package reporting

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/tradedesk/backoffice/internal/finance"
	"github.com/tradedesk/backoffice/internal/terbilang"
	"github.com/tradedesk/backoffice/internal/trading"
)

// StorePort is the slice of the entity store a report needs.
type StorePort interface {
	ListPurchaseOrders(ctx context.Context, rng trading.DateRange) ([]trading.PurchaseOrder, map[int64]trading.Quotation, error)
	ListBalanceItems(ctx context.Context, balanceIDs []int64) ([]trading.BalanceItem, error)
}

// Report is a built report with its money summary.
type Report struct {
	Dimension     Dimension      `json:"dimension"`
	Rows          []Row          `json:"rows"`
	Summary       finance.Totals `json:"summary"`
	AmountInWords string         `json:"amount_in_words"`
}

// Service loads, resolves and builds reports, caching the result.
type Service struct {
	store  StorePort
	cache  *Cache
	ppn    decimal.Decimal
	logger *slog.Logger
	group  singleflight.Group
}

// NewService wires the store with the cache helper. ppn is the tax
// percentage applied to report summaries.
func NewService(repo StorePort, cache *Cache, ppn decimal.Decimal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: repo, cache: cache, ppn: ppn, logger: logger}
}

// buildTimeout bounds a shared build, which outlives any single caller.
const buildTimeout = time.Minute

// Report returns the report for q. Identical concurrent requests share
// one build; a caller giving up does not cancel it for the others.
func (s *Service) Report(ctx context.Context, q Query) (Report, error) {
	parts := cacheParts(q)
	flightKey := strings.Join(parts, ":")
	buildCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightKey, func() (any, error) {
		ctx, cancel := context.WithTimeout(buildCtx, buildTimeout)
		defer cancel()
		return s.cached(ctx, parts, q)
	})
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

func (s *Service) cached(ctx context.Context, parts []string, q Query) (Report, error) {
	load := func(ctx context.Context) (any, error) { return s.build(ctx, q) }
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache version", slog.Any("error", err))
		return s.build(ctx, q)
	}
	var report Report
	if err := s.cache.FetchJSON(ctx, key, &report, load); err != nil {
		return Report{}, err
	}
	return report, nil
}

func (s *Service) build(ctx context.Context, q Query) (Report, error) {
	// Quotation dates precede their PO, so only the lower bound can be
	// pushed down to the store; the builder applies the full range.
	pos, quotations, err := s.store.ListPurchaseOrders(ctx, trading.DateRange{From: q.Range.From})
	if err != nil {
		return Report{}, err
	}
	var items []trading.BalanceItem
	if ids := trading.BalanceIDs(pos, quotations); len(ids) > 0 {
		items, err = s.store.ListBalanceItems(ctx, ids)
		if err != nil {
			return Report{}, err
		}
	}
	rows := Build(pos, trading.ResolveAll(pos, quotations, items), q)
	return Summarize(q.Dimension, rows, s.ppn), nil
}

// Summarize totals the rows and spells the grand total.
func Summarize(dim Dimension, rows []Row, ppn decimal.Decimal) Report {
	amounts := make([]decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		amounts = append(amounts, row.Total)
	}
	totals := finance.AggregateAmounts(amounts, finance.Settings{PPNPercentage: &ppn})
	return Report{
		Dimension:     dim,
		Rows:          rows,
		Summary:       totals,
		AmountInWords: terbilang.FromDecimal(totals.GrandTotal),
	}
}

func cacheParts(q Query) []string {
	parts := []string{"reporting", string(q.Dimension), timeToken(q.Range.From), timeToken(q.Range.To)}
	ids := make([]int64, 0, len(q.FilterIDs))
	for id := range q.FilterIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		tokens = append(tokens, strconv.FormatInt(id, 10))
	}
	if len(tokens) == 0 {
		tokens = append(tokens, "-")
	}
	return append(parts, strings.Join(tokens, ","))
}

func timeToken(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
