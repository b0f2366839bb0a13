package channel

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	nine    = decimal.NewFromInt(9)
	ten     = decimal.NewFromInt(10)
	hundred = decimal.NewFromInt(100)

	// vatFactor is the flat 15% VAT addition for prices quoted excluding
	// VAT. This is a fixed market constant, not a general VAT engine.
	vatFactor = decimal.NewFromFloat(1.15)
)

// ComputeChannelPrice computes the channel-facing price from cost inputs
// and the channel's fee rule:
//
//	base  = max(cost, 0) * (1 + max(margin, 0)/100)
//	gross = base * (1 + (fee + payment)/100) + buffer
//	gross *= 1.15 when the rule's channel quotes prices excluding VAT
//
// The result is rounded per the rule. It is always strictly positive:
// nearest_9 on a non-positive value yields 9, so every priced item stays
// sellable. The function never fails; callers must supply a valid rule
// (the store refuses to hand out a missing one).
func ComputeChannelPrice(baseCostSAR, targetMarginPct decimal.Decimal, vatIncluded bool, rule PriceRule) decimal.Decimal {
	cost := decimal.Max(baseCostSAR, decimal.Zero)
	margin := decimal.Max(targetMarginPct, decimal.Zero)
	base := cost.Mul(one.Add(margin.Div(hundred)))

	fee := decimal.Max(rule.FeePct, decimal.Zero).Add(decimal.Max(rule.PaymentPct, decimal.Zero))
	price := base.Mul(one.Add(fee.Div(hundred))).Add(decimal.Max(rule.OpsBufferSAR, decimal.Zero))

	if !vatIncluded {
		price = price.Mul(vatFactor)
	}

	if rule.RoundRule == RoundNearest9 {
		return RoundNearest9Up(price)
	}
	return price.Round(2)
}

// RoundNearest9Up rounds up to the nearest value whose integer part ends in
// 9. Values already ending in exactly 9 are unchanged; non-positive values
// yield 9 so the result is always sellable.
func RoundNearest9Up(v decimal.Decimal) decimal.Decimal {
	if v.Sign() <= 0 {
		return nine
	}
	candidate := v.Div(ten).Ceil().Mul(ten).Sub(one)
	if candidate.LessThan(v) {
		candidate = candidate.Add(ten)
	}
	return candidate
}
