package trading

import (
	"sort"
	"strings"
)

// Resolution is a balance item together with the quotation it was first reached through.
type Resolution struct {
	Item      BalanceItem
	Quotation Quotation
}

// ResolveItems returns every balance item that justifies the purchase order.
// Items are matched on balance, optional entry and the PO's vendor, counted
// once each, and returned in discovery order.
func ResolveItems(po PurchaseOrder, links []QuotationLink, quotations map[int64]Quotation, items []BalanceItem) []BalanceItem {
	traced := Trace(po, links, quotations, indexByBalance(items))
	out := make([]BalanceItem, 0, len(traced))
	for _, r := range traced {
		out = append(out, r.Item)
	}
	return out
}

// Trace is ResolveItems keeping the originating quotation of each item.
func Trace(po PurchaseOrder, links []QuotationLink, quotations map[int64]Quotation, byBalance map[int64][]BalanceItem) []Resolution {
	seen := make(map[int64]struct{})
	out := make([]Resolution, 0)
	for _, link := range links {
		if link.PurchaseOrderID != 0 && link.PurchaseOrderID != po.ID {
			continue
		}
		q, ok := quotations[link.QuotationID]
		if !ok {
			continue
		}
		for _, bl := range q.BalanceLinks {
			for _, item := range byBalance[bl.BalanceID] {
				if bl.EntryID != nil && item.BalanceEntryID != *bl.EntryID {
					continue
				}
				if item.VendorID != po.VendorID {
					continue
				}
				if _, dup := seen[item.ID]; dup {
					continue
				}
				seen[item.ID] = struct{}{}
				out = append(out, Resolution{Item: item, Quotation: q})
			}
		}
	}
	return out
}

// ResolveAll traces every purchase order against one shared item snapshot, keyed by PO id.
func ResolveAll(pos []PurchaseOrder, quotations map[int64]Quotation, items []BalanceItem) map[int64][]Resolution {
	byBalance := indexByBalance(items)
	out := make(map[int64][]Resolution, len(pos))
	for _, po := range pos {
		out[po.ID] = Trace(po, po.Quotations, quotations, byBalance)
	}
	return out
}

// BalanceIDs lists the distinct balances referenced by the quotations of the given POs.
func BalanceIDs(pos []PurchaseOrder, quotations map[int64]Quotation) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, po := range pos {
		for _, link := range po.Quotations {
			for _, bl := range quotations[link.QuotationID].BalanceLinks {
				if _, ok := seen[bl.BalanceID]; ok {
					continue
				}
				seen[bl.BalanceID] = struct{}{}
				ids = append(ids, bl.BalanceID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortByVendorName orders items for display. It sorts a copy.
func SortByVendorName(items []BalanceItem) []BalanceItem {
	out := append([]BalanceItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].VendorName) < strings.ToLower(out[j].VendorName)
	})
	return out
}

func indexByBalance(items []BalanceItem) map[int64][]BalanceItem {
	idx := make(map[int64][]BalanceItem)
	for _, item := range items {
		idx[item.BalanceID] = append(idx[item.BalanceID], item)
	}
	return idx
}
