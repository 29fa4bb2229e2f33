package trading

import (
	"time"

	"github.com/shopspring/decimal"
)

// DPType selects how a down payment is derived.
type DPType string

const (
	DPNone       DPType = ""
	DPPercentage DPType = "percentage"
	DPAmount     DPType = "amount"
)

// PurchaseOrder is a commitment to a single vendor.
type PurchaseOrder struct {
	ID         int64           `json:"id"`
	VendorID   int64           `json:"vendor_id"`
	VendorName string          `json:"vendor_name"`
	Number     string          `json:"po_number"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
	Quotations []QuotationLink `json:"quotations,omitempty"`
}

// QuotationLink joins a purchase order to one of its quotations.
type QuotationLink struct {
	PurchaseOrderID int64 `json:"purchase_order_id"`
	QuotationID     int64 `json:"quotation_id"`
}

// Quotation is a priced offer tied to a customer request.
type Quotation struct {
	ID           int64                  `json:"id"`
	RequestID    int64                  `json:"request_id"`
	CustomerID   int64                  `json:"customer_id"`
	CustomerName string                 `json:"customer_name"`
	CreatedAt    time.Time              `json:"created_at"`
	BalanceLinks []QuotationBalanceLink `json:"balance_links,omitempty"`
}

// QuotationBalanceLink points a quotation at a balance, or at one entry of it.
// A nil EntryID covers every entry of the balance.
type QuotationBalanceLink struct {
	QuotationID int64  `json:"quotation_id"`
	BalanceID   int64  `json:"balance_id"`
	EntryID     *int64 `json:"entry_id,omitempty"`
}

// BalanceItem is a priced line of a balance entry.
type BalanceItem struct {
	ID                    int64           `json:"id"`
	BalanceID             int64           `json:"balance_id"`
	BalanceEntryID        int64           `json:"balance_entry_id"`
	VendorID              int64           `json:"vendor_id"`
	VendorName            string          `json:"vendor_name"`
	CustomerSpec          string          `json:"customer_spec"`
	VendorSpec            string          `json:"vendor_spec"`
	Qty                   decimal.Decimal `json:"qty"`
	Unit                  string          `json:"unit"`
	PurchasePrice         decimal.Decimal `json:"purchase_price"`
	UnitSellingPrice      decimal.Decimal `json:"unit_selling_price"`
	TotalSellingPrice     decimal.Decimal `json:"total_selling_price"`
	Weight                decimal.Decimal `json:"weight"`
	DeliveryTime          string          `json:"delivery_time"`
	ShippingVendorGroup   string          `json:"shipping_vendor_group"`
	ShippingCustomerGroup string          `json:"shipping_customer_group"`
	OfferingLetterNumber  string          `json:"offering_letter_number"`
	OfferingDate          *time.Time      `json:"offering_date,omitempty"`
}

// VendorKey identifies a vendor setting and the items it governs.
type VendorKey struct {
	BalanceID      int64 `json:"balance_id"`
	BalanceEntryID int64 `json:"balance_entry_id"`
	VendorID       int64 `json:"vendor_id"`
}

// VendorSetting holds per vendor commercial terms within a balance entry.
type VendorSetting struct {
	VendorKey
	Discount           decimal.Decimal `json:"discount"`
	PaymentTerms       string          `json:"payment_terms"`
	DPType             DPType          `json:"dp_type"`
	DPValue            decimal.Decimal `json:"dp_value"`
	VendorLetterNumber string          `json:"vendor_letter_number"`
	VendorLetterDate   *time.Time      `json:"vendor_letter_date,omitempty"`
}

// DefaultVendorSetting is what an absent record means: no discount, no DP, blank terms.
func DefaultVendorSetting(key VendorKey) VendorSetting {
	return VendorSetting{VendorKey: key, Discount: decimal.Zero, DPValue: decimal.Zero}
}

// KeyOf returns the vendor setting key governing the item.
func (i BalanceItem) KeyOf() VendorKey {
	return VendorKey{BalanceID: i.BalanceID, BalanceEntryID: i.BalanceEntryID, VendorID: i.VendorID}
}

// DateRange bounds a listing; nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}
