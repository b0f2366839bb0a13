package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pricing holds the cost inputs for channel price computation, 1:1 with
// Product by SKU.
type Pricing struct {
	SKU             string
	BaseCostSAR     decimal.Decimal
	TargetMarginPct decimal.Decimal
	VATIncluded     bool
	UpdatedAt       time.Time
}

// DeriveCostFromPrice back-computes the base cost from a list price and a
// target margin: cost = price / (1 + margin/100). Used at load time when a
// scope source carries a price but no explicit cost.
func DeriveCostFromPrice(price, marginPct decimal.Decimal) decimal.Decimal {
	if price.Sign() <= 0 {
		return decimal.Zero
	}
	margin := marginPct
	if margin.Sign() < 0 {
		margin = decimal.Zero
	}
	divisor := decimal.NewFromInt(1).Add(margin.Div(decimal.NewFromInt(100)))
	return price.Div(divisor)
}
