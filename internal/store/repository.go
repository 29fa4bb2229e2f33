package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tradedesk/backoffice/internal/platform/db"
	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/trading"
)

//go:embed schema.sql
var schema string

// ItemFilter scopes a bulk balance item update.
type ItemFilter = trading.VendorKey

// OfferingPatch is the field overwrite propagated onto balance items.
type OfferingPatch struct {
	OfferingLetterNumber string
	OfferingDate         *time.Time
}

// Repository provides PostgreSQL backed access to trading entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate applies the embedded schema in one transaction. Statements are idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
	return wrap("migrate", err)
}

const purchaseOrderColumns = `SELECT po.id, po.vendor_id, v.name, po.po_number, po.created_by, po.created_at
FROM purchase_orders po
JOIN vendors v ON v.id = po.vendor_id`

// ListPurchaseOrders returns POs created within the range, newest first, with
// their quotation links and the linked quotations' balance links attached.
func (r *Repository) ListPurchaseOrders(ctx context.Context, rng trading.DateRange) ([]trading.PurchaseOrder, map[int64]trading.Quotation, error) {
	rows, err := r.pool.Query(ctx, purchaseOrderColumns+`
WHERE ($1::timestamptz IS NULL OR po.created_at >= $1)
  AND ($2::timestamptz IS NULL OR po.created_at <= $2)
ORDER BY po.created_at DESC, po.id DESC`, rng.From, rng.To)
	if err != nil {
		return nil, nil, wrap("list purchase orders", err)
	}
	pos, err := scanPurchaseOrders(rows)
	if err != nil {
		return nil, nil, wrap("list purchase orders", err)
	}
	quotations, err := r.attachQuotations(ctx, pos)
	if err != nil {
		return nil, nil, err
	}
	return pos, quotations, nil
}

// GetPurchaseOrder loads a single PO with its links.
func (r *Repository) GetPurchaseOrder(ctx context.Context, id int64) (trading.PurchaseOrder, map[int64]trading.Quotation, error) {
	rows, err := r.pool.Query(ctx, purchaseOrderColumns+` WHERE po.id = $1`, id)
	if err != nil {
		return trading.PurchaseOrder{}, nil, wrap("get purchase order", err)
	}
	pos, err := scanPurchaseOrders(rows)
	if err != nil {
		return trading.PurchaseOrder{}, nil, wrap("get purchase order", err)
	}
	if len(pos) == 0 {
		return trading.PurchaseOrder{}, nil, fmt.Errorf("store: purchase order %d: %w", id, shared.ErrNotFound)
	}
	quotations, err := r.attachQuotations(ctx, pos)
	if err != nil {
		return trading.PurchaseOrder{}, nil, err
	}
	return pos[0], quotations, nil
}

func scanPurchaseOrders(rows pgx.Rows) ([]trading.PurchaseOrder, error) {
	defer rows.Close()
	var pos []trading.PurchaseOrder
	for rows.Next() {
		var po trading.PurchaseOrder
		if err := rows.Scan(&po.ID, &po.VendorID, &po.VendorName, &po.Number, &po.CreatedBy, &po.CreatedAt); err != nil {
			return nil, err
		}
		pos = append(pos, po)
	}
	return pos, rows.Err()
}

func (r *Repository) attachQuotations(ctx context.Context, pos []trading.PurchaseOrder) (map[int64]trading.Quotation, error) {
	quotations := make(map[int64]trading.Quotation)
	if len(pos) == 0 {
		return quotations, nil
	}
	poIDs := make([]int64, 0, len(pos))
	byPO := make(map[int64]int, len(pos))
	for i, po := range pos {
		poIDs = append(poIDs, po.ID)
		byPO[po.ID] = i
	}

	linkRows, err := r.pool.Query(ctx, `SELECT purchase_order_id, quotation_id FROM purchase_order_quotations
WHERE purchase_order_id = ANY($1) ORDER BY purchase_order_id, quotation_id`, poIDs)
	if err != nil {
		return nil, wrap("list quotation links", err)
	}
	var quotationIDs []int64
	seen := make(map[int64]struct{})
	for linkRows.Next() {
		var link trading.QuotationLink
		if err := linkRows.Scan(&link.PurchaseOrderID, &link.QuotationID); err != nil {
			linkRows.Close()
			return nil, wrap("list quotation links", err)
		}
		idx := byPO[link.PurchaseOrderID]
		pos[idx].Quotations = append(pos[idx].Quotations, link)
		if _, ok := seen[link.QuotationID]; !ok {
			seen[link.QuotationID] = struct{}{}
			quotationIDs = append(quotationIDs, link.QuotationID)
		}
	}
	linkRows.Close()
	if err := linkRows.Err(); err != nil {
		return nil, wrap("list quotation links", err)
	}
	if len(quotationIDs) == 0 {
		return quotations, nil
	}

	qRows, err := r.pool.Query(ctx, `SELECT q.id, q.request_id, r.customer_id, c.name, q.created_at
FROM quotations q
JOIN requests r ON r.id = q.request_id
JOIN customers c ON c.id = r.customer_id
WHERE q.id = ANY($1)`, quotationIDs)
	if err != nil {
		return nil, wrap("list quotations", err)
	}
	for qRows.Next() {
		var q trading.Quotation
		var createdAt *time.Time
		if err := qRows.Scan(&q.ID, &q.RequestID, &q.CustomerID, &q.CustomerName, &createdAt); err != nil {
			qRows.Close()
			return nil, wrap("list quotations", err)
		}
		if createdAt != nil {
			q.CreatedAt = *createdAt
		}
		quotations[q.ID] = q
	}
	qRows.Close()
	if err := qRows.Err(); err != nil {
		return nil, wrap("list quotations", err)
	}

	blRows, err := r.pool.Query(ctx, `SELECT quotation_id, balance_id, entry_id FROM quotation_balances
WHERE quotation_id = ANY($1) ORDER BY id`, quotationIDs)
	if err != nil {
		return nil, wrap("list quotation balances", err)
	}
	defer blRows.Close()
	for blRows.Next() {
		var link trading.QuotationBalanceLink
		if err := blRows.Scan(&link.QuotationID, &link.BalanceID, &link.EntryID); err != nil {
			return nil, wrap("list quotation balances", err)
		}
		q, ok := quotations[link.QuotationID]
		if !ok {
			continue
		}
		q.BalanceLinks = append(q.BalanceLinks, link)
		quotations[link.QuotationID] = q
	}
	if err := blRows.Err(); err != nil {
		return nil, wrap("list quotation balances", err)
	}
	return quotations, nil
}

// ListBalanceItems returns every item of the given balances.
func (r *Repository) ListBalanceItems(ctx context.Context, balanceIDs []int64) ([]trading.BalanceItem, error) {
	if len(balanceIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT bi.id, bi.balance_id, bi.balance_entry_id, bi.vendor_id, v.name,
       bi.customer_spec, bi.vendor_spec, bi.qty::text, bi.unit, bi.purchase_price::text,
       bi.unit_selling_price::text, bi.total_selling_price::text, bi.weight::text,
       bi.delivery_time, bi.shipping_vendor_group, bi.shipping_customer_group,
       bi.offering_letter_number, bi.offering_date
FROM balance_items bi
JOIN vendors v ON v.id = bi.vendor_id
WHERE bi.balance_id = ANY($1)
ORDER BY bi.balance_id, bi.balance_entry_id, bi.id`, balanceIDs)
	if err != nil {
		return nil, wrap("list balance items", err)
	}
	defer rows.Close()
	var items []trading.BalanceItem
	for rows.Next() {
		var it trading.BalanceItem
		var qty, purchase, unitSelling, totalSelling, weight string
		if err := rows.Scan(&it.ID, &it.BalanceID, &it.BalanceEntryID, &it.VendorID, &it.VendorName,
			&it.CustomerSpec, &it.VendorSpec, &qty, &it.Unit, &purchase,
			&unitSelling, &totalSelling, &weight,
			&it.DeliveryTime, &it.ShippingVendorGroup, &it.ShippingCustomerGroup,
			&it.OfferingLetterNumber, &it.OfferingDate); err != nil {
			return nil, wrap("list balance items", err)
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&it.Qty:               qty,
			&it.PurchasePrice:     purchase,
			&it.UnitSellingPrice:  unitSelling,
			&it.TotalSellingPrice: totalSelling,
			&it.Weight:            weight,
		}); err != nil {
			return nil, wrap("list balance items", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list balance items", err)
	}
	return items, nil
}

// GetVendorSetting returns the setting for key, or nil when none is stored.
func (r *Repository) GetVendorSetting(ctx context.Context, key trading.VendorKey) (*trading.VendorSetting, error) {
	var s trading.VendorSetting
	var discount, dpValue, dpType string
	err := r.pool.QueryRow(ctx, `SELECT balance_id, balance_entry_id, vendor_id, discount::text, payment_terms,
       dp_type, dp_value::text, vendor_letter_number, vendor_letter_date
FROM vendor_settings
WHERE balance_id = $1 AND balance_entry_id = $2 AND vendor_id = $3`, key.BalanceID, key.BalanceEntryID, key.VendorID).
		Scan(&s.BalanceID, &s.BalanceEntryID, &s.VendorID, &discount, &s.PaymentTerms, &dpType, &dpValue, &s.VendorLetterNumber, &s.VendorLetterDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get vendor setting", err)
	}
	s.DPType = trading.DPType(dpType)
	if err := parseDecimals(map[*decimal.Decimal]string{&s.Discount: discount, &s.DPValue: dpValue}); err != nil {
		return nil, wrap("get vendor setting", err)
	}
	return &s, nil
}

// UpsertVendorSetting writes the setting keyed by (balance, entry, vendor).
func (r *Repository) UpsertVendorSetting(ctx context.Context, s trading.VendorSetting) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO vendor_settings
    (balance_id, balance_entry_id, vendor_id, discount, payment_terms, dp_type, dp_value, vendor_letter_number, vendor_letter_date, updated_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7::numeric, $8, $9, NOW())
ON CONFLICT (balance_id, balance_entry_id, vendor_id) DO UPDATE SET
    discount = EXCLUDED.discount,
    payment_terms = EXCLUDED.payment_terms,
    dp_type = EXCLUDED.dp_type,
    dp_value = EXCLUDED.dp_value,
    vendor_letter_number = EXCLUDED.vendor_letter_number,
    vendor_letter_date = EXCLUDED.vendor_letter_date,
    updated_at = NOW()`,
		s.BalanceID, s.BalanceEntryID, s.VendorID, s.Discount.String(), s.PaymentTerms,
		string(s.DPType), s.DPValue.String(), s.VendorLetterNumber, s.VendorLetterDate)
	return wrap("upsert vendor setting", err)
}

// BulkUpdateBalanceItems overwrites the offering letter fields of every item in scope.
func (r *Repository) BulkUpdateBalanceItems(ctx context.Context, filter ItemFilter, patch OfferingPatch) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE balance_items
SET offering_letter_number = $4, offering_date = $5
WHERE balance_id = $1 AND balance_entry_id = $2 AND vendor_id = $3`,
		filter.BalanceID, filter.BalanceEntryID, filter.VendorID, patch.OfferingLetterNumber, patch.OfferingDate)
	if err != nil {
		return 0, wrap("bulk update balance items", err)
	}
	return tag.RowsAffected(), nil
}

// ListDriftedVendorSettings returns the keys of settings whose letter
// fields differ from at least one of the items they govern.
func (r *Repository) ListDriftedVendorSettings(ctx context.Context, limit int) ([]trading.VendorKey, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT vs.balance_id, vs.balance_entry_id, vs.vendor_id
FROM vendor_settings vs
JOIN balance_items bi
  ON bi.balance_id = vs.balance_id
 AND bi.balance_entry_id = vs.balance_entry_id
 AND bi.vendor_id = vs.vendor_id
WHERE bi.offering_letter_number IS DISTINCT FROM vs.vendor_letter_number
   OR bi.offering_date IS DISTINCT FROM vs.vendor_letter_date
ORDER BY 1, 2, 3
LIMIT $1`, limit)
	if err != nil {
		return nil, wrap("list drifted vendor settings", err)
	}
	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (trading.VendorKey, error) {
		var k trading.VendorKey
		err := row.Scan(&k.BalanceID, &k.BalanceEntryID, &k.VendorID)
		return k, err
	})
	if err != nil {
		return nil, wrap("list drifted vendor settings", err)
	}
	return keys, nil
}

func parseDecimals(fields map[*decimal.Decimal]string) error {
	for dst, raw := range fields {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parse numeric %q: %w", raw, err)
		}
		*dst = v
	}
	return nil
}
