package channel

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundRule selects how a computed channel price is rounded
type RoundRule string

const (
	// RoundNearest9 rounds up to the nearest value whose integer part ends
	// in 9 (the market-standard charm price).
	RoundNearest9 RoundRule = "nearest_9"
	// RoundTwoDecimals rounds to two decimal places
	RoundTwoDecimals RoundRule = "two_decimals"
)

// PriceRule holds the per-channel fee structure applied on top of cost and
// margin when computing the channel-facing price. Exactly one rule exists
// per channel; it is seeded at provisioning time.
type PriceRule struct {
	Channel      Channel
	FeePct       decimal.Decimal
	PaymentPct   decimal.Decimal
	OpsBufferSAR decimal.Decimal
	RoundRule    RoundRule
	Active       bool
	UpdatedAt    time.Time
}

// DefaultPriceRules returns the provisioning defaults for all four
// channels. Seeding is an explicit migrate-time operation and idempotent.
func DefaultPriceRules() []PriceRule {
	return []PriceRule{
		{Channel: ChannelWoo, FeePct: decimal.NewFromFloat(2.50), PaymentPct: decimal.NewFromFloat(2.00), OpsBufferSAR: decimal.NewFromFloat(2.0), RoundRule: RoundNearest9, Active: true},
		{Channel: ChannelZid, FeePct: decimal.NewFromFloat(3.20), PaymentPct: decimal.NewFromFloat(1.80), OpsBufferSAR: decimal.NewFromFloat(3.0), RoundRule: RoundNearest9, Active: true},
		{Channel: ChannelSalla, FeePct: decimal.NewFromFloat(3.00), PaymentPct: decimal.NewFromFloat(1.90), OpsBufferSAR: decimal.NewFromFloat(3.0), RoundRule: RoundNearest9, Active: true},
		{Channel: ChannelShopify, FeePct: decimal.NewFromFloat(2.90), PaymentPct: decimal.NewFromFloat(1.70), OpsBufferSAR: decimal.NewFromFloat(4.0), RoundRule: RoundNearest9, Active: true},
	}
}
