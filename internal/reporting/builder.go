package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradedesk/backoffice/internal/trading"
)

// Dimension selects what a report groups and filters on.
type Dimension string

const (
	// DimensionCustomer produces the sales report.
	DimensionCustomer Dimension = "customer"
	// DimensionVendor produces the purchase report.
	DimensionVendor Dimension = "vendor"
)

// Query narrows a report. An empty FilterIDs set keeps every row.
type Query struct {
	Range     trading.DateRange
	Dimension Dimension
	FilterIDs map[int64]struct{}
}

// Row is one numbered report line.
type Row struct {
	Seq            int             `json:"seq"`
	User           string          `json:"user"`
	Date           time.Time       `json:"date"`
	DimensionID    int64           `json:"dimension_id"`
	DimensionLabel string          `json:"dimension_label"`
	PONumber       string          `json:"po_number"`
	Description    string          `json:"description"`
	Qty            decimal.Decimal `json:"qty"`
	Unit           string          `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
}

// Build turns resolved purchase orders into numbered rows, newest PO first.
// Inputs are not modified.
func Build(pos []trading.PurchaseOrder, resolved map[int64][]trading.Resolution, q Query) []Row {
	ordered := append([]trading.PurchaseOrder(nil), pos...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		}
		return ordered[i].ID > ordered[j].ID
	})

	from, to := bounds(q.Range)
	rows := make([]Row, 0)
	seq := 0
	for _, po := range ordered {
		for _, res := range resolved[po.ID] {
			row := makeRow(po, res, q.Dimension)
			if from != nil && row.Date.Before(*from) {
				continue
			}
			if to != nil && row.Date.After(*to) {
				continue
			}
			if len(q.FilterIDs) > 0 {
				if _, ok := q.FilterIDs[row.DimensionID]; !ok {
					continue
				}
			}
			seq++
			row.Seq = seq
			rows = append(rows, row)
		}
	}
	return rows
}

// EndOfDay moves a date-only bound to the last millisecond of that day.
// Bounds carrying a time of day are returned unchanged.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if !t.Equal(midnight) {
		return t
	}
	return midnight.Add(24*time.Hour - time.Millisecond)
}

func bounds(r trading.DateRange) (*time.Time, *time.Time) {
	var to *time.Time
	if r.To != nil {
		end := EndOfDay(*r.To)
		to = &end
	}
	return r.From, to
}

func makeRow(po trading.PurchaseOrder, res trading.Resolution, dim Dimension) Row {
	item := res.Item
	date := po.CreatedAt
	if !res.Quotation.CreatedAt.IsZero() {
		date = res.Quotation.CreatedAt
	}
	row := Row{
		User:     po.CreatedBy,
		Date:     date,
		PONumber: po.Number,
		Qty:      item.Qty,
		Unit:     item.Unit,
	}
	if dim == DimensionVendor {
		row.DimensionID = po.VendorID
		row.DimensionLabel = po.VendorName
		if row.DimensionLabel == "" {
			row.DimensionLabel = item.VendorName
		}
		row.Description = item.VendorSpec
		row.UnitPrice = item.PurchasePrice
		row.Total = item.Qty.Mul(item.PurchasePrice)
		return row
	}
	row.DimensionID = res.Quotation.CustomerID
	row.DimensionLabel = res.Quotation.CustomerName
	row.Description = item.CustomerSpec
	row.UnitPrice = item.UnitSellingPrice
	row.Total = item.TotalSellingPrice
	return row
}
