package catalog

import "time"

// Inventory holds per-SKU stock counters. Catalog loads set on-hand and
// safety stock; only the webhook receiver moves reserved_qty.
type Inventory struct {
	SKU         string
	StockOnHand int
	ReservedQty int
	SafetyStock int
	UpdatedAt   time.Time
}

// SellableQty is stock on hand minus reserved minus safety stock,
// floored at zero.
func (i Inventory) SellableQty() int {
	q := i.StockOnHand - i.ReservedQty - i.SafetyStock
	if q < 0 {
		return 0
	}
	return q
}

// IsConsistent reports whether all counters satisfy the non-negativity
// invariants checked by the wave validator.
func (i Inventory) IsConsistent() bool {
	return i.StockOnHand >= 0 &&
		i.ReservedQty >= 0 &&
		i.SafetyStock >= 0 &&
		i.StockOnHand-i.ReservedQty-i.SafetyStock >= 0
}
