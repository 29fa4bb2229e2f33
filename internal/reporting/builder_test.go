package reporting

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradedesk/backoffice/internal/trading"
)

func day(d int) time.Time {
	return time.Date(2024, time.May, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

type builderFixture struct {
	pos        []trading.PurchaseOrder
	quotations map[int64]trading.Quotation
	items      []trading.BalanceItem
}

func newBuilderFixture() builderFixture {
	quotations := map[int64]trading.Quotation{
		1: {ID: 1, CustomerID: 501, CustomerName: "PT Sinar", CreatedAt: day(2), BalanceLinks: []trading.QuotationBalanceLink{{QuotationID: 1, BalanceID: 10}}},
		2: {ID: 2, CustomerID: 502, CustomerName: "CV Makmur", CreatedAt: day(10), BalanceLinks: []trading.QuotationBalanceLink{{QuotationID: 2, BalanceID: 20}}},
		3: {ID: 3, CustomerID: 501, CustomerName: "PT Sinar", BalanceLinks: []trading.QuotationBalanceLink{{QuotationID: 3, BalanceID: 30}}},
	}
	pos := []trading.PurchaseOrder{
		{ID: 100, VendorID: 7, VendorName: "Vendor A", Number: "PO-100", CreatedBy: "dina", CreatedAt: day(3), Quotations: []trading.QuotationLink{{PurchaseOrderID: 100, QuotationID: 1}}},
		{ID: 200, VendorID: 8, VendorName: "Vendor B", Number: "PO-200", CreatedBy: "budi", CreatedAt: day(11), Quotations: []trading.QuotationLink{{PurchaseOrderID: 200, QuotationID: 2}}},
		{ID: 300, VendorID: 7, VendorName: "Vendor A", Number: "PO-300", CreatedBy: "sari", CreatedAt: day(20), Quotations: []trading.QuotationLink{{PurchaseOrderID: 300, QuotationID: 3}}},
	}
	mk := func(id, balance, vendor int64, total int64) trading.BalanceItem {
		return trading.BalanceItem{
			ID: id, BalanceID: balance, BalanceEntryID: 1, VendorID: vendor,
			CustomerSpec: "cust spec", VendorSpec: "vendor spec",
			Qty: decimal.NewFromInt(2), Unit: "pcs",
			PurchasePrice: decimal.NewFromInt(40), UnitSellingPrice: decimal.NewFromInt(total / 2),
			TotalSellingPrice: decimal.NewFromInt(total),
		}
	}
	items := []trading.BalanceItem{
		mk(1, 10, 7, 100),
		mk(2, 10, 7, 200),
		mk(3, 20, 8, 300),
		mk(4, 30, 7, 400),
	}
	return builderFixture{pos: pos, quotations: quotations, items: items}
}

func (f builderFixture) resolved() map[int64][]trading.Resolution {
	return trading.ResolveAll(f.pos, f.quotations, f.items)
}

func seqs(rows []Row) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Seq)
	}
	return out
}

func TestBuildOrdersNewestPOFirstWithDenseNumbering(t *testing.T) {
	f := newBuilderFixture()

	rows := Build(f.pos, f.resolved(), Query{Dimension: DimensionCustomer})

	require.Len(t, rows, 4)
	require.Equal(t, []int{1, 2, 3, 4}, seqs(rows))
	require.Equal(t, "PO-300", rows[0].PONumber)
	require.Equal(t, "PO-200", rows[1].PONumber)
	require.Equal(t, "PO-100", rows[2].PONumber)
	require.Equal(t, "PO-100", rows[3].PONumber)
}

func TestBuildUsesQuotationDateThenPODate(t *testing.T) {
	f := newBuilderFixture()

	rows := Build(f.pos, f.resolved(), Query{Dimension: DimensionCustomer})

	require.Equal(t, day(20), rows[0].Date, "quotation 3 has no date, PO date used")
	require.Equal(t, day(10), rows[1].Date)
	require.Equal(t, "sari", rows[0].User)
	require.Equal(t, "PT Sinar", rows[0].DimensionLabel)
}

func TestBuildEmptyFilterKeepsEverything(t *testing.T) {
	f := newBuilderFixture()

	all := Build(f.pos, f.resolved(), Query{Dimension: DimensionCustomer, FilterIDs: map[int64]struct{}{}})

	require.Len(t, all, 4)
}

func TestBuildDimensionFilterRenumbers(t *testing.T) {
	f := newBuilderFixture()

	rows := Build(f.pos, f.resolved(), Query{Dimension: DimensionCustomer, FilterIDs: map[int64]struct{}{501: {}}})

	require.Equal(t, []int{1, 2, 3}, seqs(rows))
	for _, r := range rows {
		require.Equal(t, int64(501), r.DimensionID)
	}

	rows = Build(f.pos, f.resolved(), Query{Dimension: DimensionVendor, FilterIDs: map[int64]struct{}{8: {}}})
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].Seq)
	require.Equal(t, "Vendor B", rows[0].DimensionLabel)
	require.True(t, decimal.NewFromInt(80).Equal(rows[0].Total), "purchase total is qty x purchase price")
}

func TestBuildToDateIncludesWholeDay(t *testing.T) {
	f := newBuilderFixture()

	rows := Build(f.pos, f.resolved(), Query{
		Dimension: DimensionCustomer,
		Range:     trading.DateRange{From: ptr(day(10)), To: ptr(day(10))},
	})

	require.Len(t, rows, 1)
	require.Equal(t, day(10), rows[0].Date)
	require.Equal(t, 1, rows[0].Seq)
}

func TestEndOfDay(t *testing.T) {
	require.Equal(t, time.Date(2024, time.May, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC), EndOfDay(day(10)))

	withTime := time.Date(2024, time.May, 10, 8, 30, 0, 0, time.UTC)
	require.Equal(t, withTime, EndOfDay(withTime))
}

func TestBuildDoesNotMutateInputAndIsReentrant(t *testing.T) {
	f := newBuilderFixture()
	resolved := f.resolved()
	before := append([]trading.PurchaseOrder(nil), f.pos...)

	counts := make([]int, 8)
	var wg sync.WaitGroup
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := Query{Dimension: DimensionCustomer}
			if i%2 == 0 {
				q.FilterIDs = map[int64]struct{}{502: {}}
			}
			counts[i] = len(Build(f.pos, resolved, q))
		}(i)
	}
	wg.Wait()

	for i, n := range counts {
		if i%2 == 0 {
			require.Equal(t, 1, n)
		} else {
			require.Equal(t, 4, n)
		}
	}
	require.Equal(t, before, f.pos)
}
