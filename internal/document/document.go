// Package document assembles printable purchase order documents from
// resolved balance items and renders them to HTML or PDF.
package document

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradedesk/backoffice/internal/finance"
	"github.com/tradedesk/backoffice/internal/terbilang"
	"github.com/tradedesk/backoffice/internal/trading"
)

// PurchaseOrderDocument is the fully aggregated view a renderer lays out.
// Renderers format it; they never recompute amounts.
type PurchaseOrderDocument struct {
	PO                 trading.PurchaseOrder `json:"purchase_order"`
	Rows               []trading.BalanceItem `json:"rows"`
	PPNPercentage      decimal.Decimal       `json:"ppn_percentage"`
	DiscountPercentage decimal.Decimal       `json:"discount_percentage"`
	Total              decimal.Decimal       `json:"total"`
	DiscountAmount     decimal.Decimal       `json:"discount_amount"`
	AfterDiscount      decimal.Decimal       `json:"after_discount"`
	PPNAmount          decimal.Decimal       `json:"ppn_amount"`
	GrandTotal         decimal.Decimal       `json:"grand_total"`
	DPType             trading.DPType        `json:"dp_type,omitempty"`
	DPAmount           *decimal.Decimal      `json:"dp_amount,omitempty"`
	AmountInWords      string                `json:"amount_in_words"`
	PaymentTerms       string                `json:"payment_terms"`
	VendorLetterNumber string                `json:"vendor_letter_number"`
	VendorLetterDate   *time.Time            `json:"vendor_letter_date,omitempty"`
}

// Assemble aggregates the resolved items of po under the vendor setting.
// A nil setting means the defaults: no discount, no down payment.
func Assemble(po trading.PurchaseOrder, resolved []trading.BalanceItem, setting *trading.VendorSetting, ppn decimal.Decimal) PurchaseOrderDocument {
	terms := trading.DefaultVendorSetting(trading.VendorKey{VendorID: po.VendorID})
	if setting != nil {
		terms = *setting
	}
	totals := finance.Aggregate(resolved, finance.SettingsFor(terms, ppn))

	rows := resolved
	if rows == nil {
		rows = []trading.BalanceItem{}
	}
	doc := PurchaseOrderDocument{
		PO:                 po,
		Rows:               rows,
		PPNPercentage:      ppn,
		DiscountPercentage: terms.Discount,
		Total:              totals.Total,
		DiscountAmount:     totals.DiscountAmount,
		AfterDiscount:      totals.AfterDiscount,
		PPNAmount:          totals.PPNAmount,
		GrandTotal:         totals.GrandTotal,
		AmountInWords:      terbilang.FromDecimal(totals.GrandTotal),
		PaymentTerms:       terms.PaymentTerms,
		VendorLetterNumber: terms.VendorLetterNumber,
		VendorLetterDate:   terms.VendorLetterDate,
	}
	if dp, ok := finance.DownPayment(totals.GrandTotal, terms); ok {
		doc.DPType = terms.DPType
		doc.DPAmount = &dp
	}
	return doc
}

// SettingKey picks the vendor setting that governs a PO document: the
// (balance, entry) of the first resolved item under the PO's vendor.
func SettingKey(po trading.PurchaseOrder, resolved []trading.BalanceItem) (trading.VendorKey, bool) {
	if len(resolved) == 0 {
		return trading.VendorKey{}, false
	}
	return trading.VendorKey{
		BalanceID:      resolved[0].BalanceID,
		BalanceEntryID: resolved[0].BalanceEntryID,
		VendorID:       po.VendorID,
	}, true
}
