package finance

import (
	"github.com/shopspring/decimal"

	"github.com/tradedesk/backoffice/internal/trading"
)

var hundred = decimal.NewFromInt(100)

// Settings carries the optional percentages applied to a set of items.
// A nil percentage counts as zero.
type Settings struct {
	DiscountPercentage *decimal.Decimal
	PPNPercentage      *decimal.Decimal
}

// Totals is the aggregated money view of a set of balance items.
type Totals struct {
	Total          decimal.Decimal `json:"total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	AfterDiscount  decimal.Decimal `json:"after_discount"`
	PPNAmount      decimal.Decimal `json:"ppn_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// Aggregate sums item selling totals and applies discount then PPN.
// Only the PPN amount and the grand total are rounded to whole units.
func Aggregate(items []trading.BalanceItem, settings Settings) Totals {
	amounts := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, item.TotalSellingPrice)
	}
	return AggregateAmounts(amounts, settings)
}

// AggregateAmounts is Aggregate over plain line totals.
func AggregateAmounts(amounts []decimal.Decimal, settings Settings) Totals {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	discountAmount := total.Mul(percentOrZero(settings.DiscountPercentage)).Div(hundred)
	afterDiscount := total.Sub(discountAmount)
	ppnAmount := afterDiscount.Mul(percentOrZero(settings.PPNPercentage)).Div(hundred).Round(0)
	return Totals{
		Total:          total,
		DiscountAmount: discountAmount,
		AfterDiscount:  afterDiscount,
		PPNAmount:      ppnAmount,
		GrandTotal:     afterDiscount.Add(ppnAmount).Round(0),
	}
}

// DownPayment derives the down payment owed under a vendor setting.
// The bool is false when the setting asks for no down payment.
func DownPayment(grandTotal decimal.Decimal, setting trading.VendorSetting) (decimal.Decimal, bool) {
	switch setting.DPType {
	case trading.DPPercentage:
		return grandTotal.Mul(setting.DPValue).Div(hundred), true
	case trading.DPAmount:
		return setting.DPValue, true
	default:
		return decimal.Zero, false
	}
}

// SettingsFor combines a vendor setting's discount with a PPN rate.
func SettingsFor(setting trading.VendorSetting, ppn decimal.Decimal) Settings {
	discount := setting.Discount
	return Settings{DiscountPercentage: &discount, PPNPercentage: &ppn}
}

func percentOrZero(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}
