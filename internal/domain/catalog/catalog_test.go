package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		raw     string
		want    Scope
		wantErr bool
	}{
		{"top50", ScopeTop50, false},
		{" Top100 ", ScopeTop100, false},
		{"TOP200", ScopeTop200, false},
		{"active", ScopeActive, false},
		{"top500", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseScope(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScopeNominalSizeAndLoadable(t *testing.T) {
	assert.Equal(t, 50, ScopeTop50.NominalSize())
	assert.Equal(t, 100, ScopeTop100.NominalSize())
	assert.Equal(t, 200, ScopeTop200.NominalSize())
	assert.Equal(t, 0, ScopeActive.NominalSize())

	assert.True(t, ScopeTop50.Loadable())
	assert.False(t, ScopeActive.Loadable())
	assert.False(t, Scope("top500").Loadable())
}

func TestInventorySellableQty(t *testing.T) {
	tests := []struct {
		name string
		inv  Inventory
		want int
	}{
		{"normal", Inventory{StockOnHand: 40, ReservedQty: 5, SafetyStock: 3}, 32},
		{"fully reserved", Inventory{StockOnHand: 10, ReservedQty: 10}, 0},
		{"floored at zero", Inventory{StockOnHand: 5, ReservedQty: 4, SafetyStock: 3}, 0},
		{"empty", Inventory{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.inv.SellableQty())
		})
	}
}

func TestInventoryIsConsistent(t *testing.T) {
	assert.True(t, Inventory{StockOnHand: 10, ReservedQty: 2, SafetyStock: 3}.IsConsistent())
	assert.False(t, Inventory{StockOnHand: -1}.IsConsistent())
	assert.False(t, Inventory{StockOnHand: 5, ReservedQty: 4, SafetyStock: 3}.IsConsistent())
}

func TestDeriveCostFromPrice(t *testing.T) {
	price := decimal.NewFromInt(149)
	cost := DeriveCostFromPrice(price, decimal.NewFromInt(25))
	assert.True(t, cost.Equal(decimal.RequireFromString("119.2")), "got %s", cost)

	// negative margin is treated as zero, price passes through
	cost = DeriveCostFromPrice(price, decimal.NewFromInt(-10))
	assert.True(t, cost.Equal(price))

	assert.True(t, DeriveCostFromPrice(decimal.Zero, decimal.NewFromInt(25)).IsZero())
}

func TestProductHasBilingualNames(t *testing.T) {
	p := &Product{NameAR: "عسل", NameEN: "Honey"}
	assert.True(t, p.HasBilingualNames())
	assert.False(t, (&Product{NameEN: "Honey"}).HasBilingualNames())
	assert.False(t, (&Product{NameAR: "عسل"}).HasBilingualNames())
}
