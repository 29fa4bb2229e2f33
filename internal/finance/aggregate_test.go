package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradedesk/backoffice/internal/trading"
)

func pct(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}

func TestAggregateDiscountThenPPN(t *testing.T) {
	items := []trading.BalanceItem{
		{ID: 1, TotalSellingPrice: decimal.NewFromInt(600000)},
		{ID: 2, TotalSellingPrice: decimal.NewFromInt(400000)},
	}

	totals := Aggregate(items, Settings{DiscountPercentage: pct(10), PPNPercentage: pct(11)})

	requireDecimal(t, 1000000, totals.Total)
	requireDecimal(t, 100000, totals.DiscountAmount)
	requireDecimal(t, 900000, totals.AfterDiscount)
	requireDecimal(t, 99000, totals.PPNAmount)
	requireDecimal(t, 999000, totals.GrandTotal)
}

func TestAggregateMissingPercentagesAreZero(t *testing.T) {
	items := []trading.BalanceItem{{TotalSellingPrice: decimal.NewFromInt(250)}}

	totals := Aggregate(items, Settings{})

	requireDecimal(t, 250, totals.Total)
	requireDecimal(t, 0, totals.DiscountAmount)
	requireDecimal(t, 0, totals.PPNAmount)
	requireDecimal(t, 250, totals.GrandTotal)
}

func TestAggregateRoundsOnlyPPNAndGrandTotal(t *testing.T) {
	items := []trading.BalanceItem{{TotalSellingPrice: decimal.NewFromInt(1005)}}

	totals := Aggregate(items, Settings{DiscountPercentage: pct(3), PPNPercentage: pct(11)})

	// 1005 * 3% = 30.15 kept unrounded
	require.True(t, decimal.RequireFromString("30.15").Equal(totals.DiscountAmount))
	require.True(t, decimal.RequireFromString("974.85").Equal(totals.AfterDiscount))
	// 974.85 * 11% = 107.2335 -> 107
	requireDecimal(t, 107, totals.PPNAmount)
	// 974.85 + 107 = 1081.85 -> 1082
	requireDecimal(t, 1082, totals.GrandTotal)
}

func TestDownPayment(t *testing.T) {
	grand := decimal.NewFromInt(999000)

	dp, ok := DownPayment(grand, trading.VendorSetting{DPType: trading.DPPercentage, DPValue: decimal.NewFromInt(50)})
	require.True(t, ok)
	requireDecimal(t, 499500, dp)

	dp, ok = DownPayment(grand, trading.VendorSetting{DPType: trading.DPAmount, DPValue: decimal.NewFromInt(200000)})
	require.True(t, ok)
	requireDecimal(t, 200000, dp)

	dp, ok = DownPayment(decimal.NewFromInt(1), trading.VendorSetting{DPType: trading.DPAmount, DPValue: decimal.NewFromInt(200000)})
	require.True(t, ok)
	requireDecimal(t, 200000, dp)

	_, ok = DownPayment(grand, trading.DefaultVendorSetting(trading.VendorKey{}))
	require.False(t, ok)
}

func TestSettingsFor(t *testing.T) {
	setting := trading.VendorSetting{Discount: decimal.NewFromInt(10)}

	totals := AggregateAmounts([]decimal.Decimal{decimal.NewFromInt(1000000)}, SettingsFor(setting, decimal.NewFromInt(11)))

	requireDecimal(t, 999000, totals.GrandTotal)
}
