package channel

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func rule(feePct, paymentPct, bufferSAR float64, round RoundRule) PriceRule {
	return PriceRule{
		Channel:      ChannelWoo,
		FeePct:       decimal.NewFromFloat(feePct),
		PaymentPct:   decimal.NewFromFloat(paymentPct),
		OpsBufferSAR: decimal.NewFromFloat(bufferSAR),
		RoundRule:    round,
		Active:       true,
	}
}

func TestComputeChannelPrice(t *testing.T) {
	tests := []struct {
		name        string
		cost        float64
		marginPct   float64
		vatIncluded bool
		rule        PriceRule
		want        string
	}{
		{
			name:        "vat included nearest 9",
			cost:        100,
			marginPct:   25,
			vatIncluded: true,
			rule:        rule(2.5, 2.0, 2.0, RoundNearest9),
			// 100*1.25=125, *1.045=130.625, +2=132.625 -> 139
			want: "139",
		},
		{
			name:        "vat excluded adds 15 percent",
			cost:        100,
			marginPct:   25,
			vatIncluded: false,
			rule:        rule(2.5, 2.0, 2.0, RoundNearest9),
			// 132.625*1.15=152.51875 -> 159
			want: "159",
		},
		{
			name:        "two decimals rounding",
			cost:        100,
			marginPct:   25,
			vatIncluded: true,
			rule:        rule(2.5, 2.0, 2.0, RoundTwoDecimals),
			want:        "132.63",
		},
		{
			name:        "zero cost still sellable",
			cost:        0,
			marginPct:   25,
			vatIncluded: true,
			rule:        rule(2.5, 2.0, 0, RoundNearest9),
			want:        "9",
		},
		{
			name:        "negative margin clamped to zero",
			cost:        100,
			marginPct:   -10,
			vatIncluded: true,
			rule:        rule(0, 0, 0, RoundNearest9),
			// base stays 100 -> 109
			want: "109",
		},
		{
			name:        "zid defaults",
			cost:        40,
			marginPct:   30,
			vatIncluded: true,
			rule:        rule(3.2, 1.8, 3.0, RoundNearest9),
			// 40*1.30=52, *1.05=54.6, +3=57.6 -> 59
			want: "59",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeChannelPrice(
				decimal.NewFromFloat(tt.cost),
				decimal.NewFromFloat(tt.marginPct),
				tt.vatIncluded,
				tt.rule,
			)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestRoundNearest9Up(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"132.625", "139"},
		{"149", "149"},
		{"149.01", "159"},
		{"9", "9"},
		{"1", "9"},
		{"0", "9"},
		{"-5", "9"},
		{"10", "19"},
	}
	for _, tt := range tests {
		got := RoundNearest9Up(decimal.RequireFromString(tt.in))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"RoundNearest9Up(%s) = %s, want %s", tt.in, got, tt.want)
	}
}

func TestComputeChannelPriceAlwaysEndsInNine(t *testing.T) {
	r := rule(2.9, 1.7, 4.0, RoundNearest9)
	for _, cost := range []float64{0.5, 12, 37.77, 250, 999.99} {
		got := ComputeChannelPrice(decimal.NewFromFloat(cost), decimal.NewFromFloat(20), false, r)
		assert.True(t, got.Mod(decimal.NewFromInt(10)).Equal(decimal.NewFromInt(9)),
			"price %s for cost %v does not end in 9", got, cost)
		assert.True(t, got.IsPositive())
	}
}
