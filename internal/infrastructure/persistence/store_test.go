package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/persistence/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := NewInMemoryDatabase()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db, zap.NewNop())
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func writeTestCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	header := "SKU,Name,Description,Regular price,Meta: _margin,Meta: _cost,Stock,Images,Published,Brands,Categories,Weight (kg),Barcode\n"
	content := header
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				content += ","
			}
			content += cell
		}
		content += "\n"
	}
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSeedPriceRulesIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.SeedPriceRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, inserted)

	inserted, err = store.SeedPriceRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	rule, err := store.GetPriceRule(ctx, channel.ChannelZid)
	require.NoError(t, err)
	assert.True(t, rule.FeePct.Equal(decimal.NewFromFloat(3.2)))
	assert.Equal(t, channel.RoundNearest9, rule.RoundRule)
}

func TestGetPriceRuleMissingIsConfigError(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPriceRule(context.Background(), channel.ChannelWoo)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConfig)
}

func TestLoadProductsFromCSV(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path := writeTestCSV(t, [][]string{
		{"NGS-001", "عسل سدر | Sidr Honey", "وصف | Desc", "149", "25", "", "40", "https://img/1.jpg", "1", "NGS", "Honey", "0.5", "628001"},
		{"NGS-002", "Plain Name", "", "59", "30", "40", "10", "", "0", "", "Oils", "", ""},
		{"", "no sku row", "", "", "", "", "", "", "", "", "", "", ""},
	})

	count, err := store.LoadProductsFromCSV(ctx, catalog.ScopeTop50, path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	products, err := store.GetProductsForScope(ctx, catalog.ScopeTop50)
	require.NoError(t, err)
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, "NGS-001", first.SKU)
	assert.Equal(t, "عسل سدر", first.NameAR)
	assert.Equal(t, "Sidr Honey", first.NameEN)
	assert.Equal(t, catalog.ProductStatusPublish, first.Status)
	assert.Equal(t, "honey", first.CategoryKey)
	assert.Equal(t, 0.5, first.Weight)

	// cost derived from price when the export has no explicit cost
	pricings, err := store.GetPricings(ctx, []string{"NGS-001", "NGS-002"})
	require.NoError(t, err)
	derived := decimal.NewFromInt(149).Div(decimal.NewFromFloat(1.25))
	assert.True(t, pricings["NGS-001"].BaseCostSAR.Sub(derived).Abs().LessThan(decimal.NewFromFloat(0.0001)))
	assert.True(t, pricings["NGS-002"].BaseCostSAR.Equal(decimal.NewFromInt(40)))

	// reload is idempotent and keeps reserved stock
	require.NoError(t, store.db.DB.Model(&models.InventoryModel{}).
		Where("sku = ?", "NGS-001").
		Update("reserved_qty", 3).Error)

	count, err = store.LoadProductsFromCSV(ctx, catalog.ScopeTop50, path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	inventories, err := store.GetInventories(ctx, []string{"NGS-001"})
	require.NoError(t, err)
	assert.Equal(t, 3, inventories["NGS-001"].ReservedQty)
	assert.Equal(t, 40, inventories["NGS-001"].StockOnHand)

	// category mappings seeded for every channel
	mapping, err := store.GetCategoryMapping(ctx, channel.ChannelSalla)
	require.NoError(t, err)
	assert.Equal(t, "Honey", mapping["honey"])
	assert.Equal(t, "Oils", mapping["oils"])
}

func TestConfirmCategoryMappings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path := writeTestCSV(t, [][]string{
		{"NGS-001", "عسل | Honey", "", "149", "25", "", "40", "", "1", "NGS", "Honey", "0.5", ""},
		{"NGS-002", "زيت | Oil", "", "59", "30", "40", "10", "", "1", "NGS", "Oils", "", ""},
	})
	_, err := store.LoadProductsFromCSV(ctx, catalog.ScopeTop50, path)
	require.NoError(t, err)

	// seeded placeholders do not count as mapped
	missing, err := store.FindUnmappedCategoryKeys(ctx, channel.ChannelWoo, catalog.ScopeTop50)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"honey", "oils"}, missing)

	n, err := store.ConfirmCategoryMappings(ctx, channel.ChannelWoo, []string{"honey"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	missing, err = store.FindUnmappedCategoryKeys(ctx, channel.ChannelWoo, catalog.ScopeTop50)
	require.NoError(t, err)
	assert.Equal(t, []string{"oils"}, missing)

	// empty key list confirms the channel's remaining rows
	n, err = store.ConfirmCategoryMappings(ctx, channel.ChannelWoo, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	missing, err = store.FindUnmappedCategoryKeys(ctx, channel.ChannelWoo, catalog.ScopeTop50)
	require.NoError(t, err)
	assert.Empty(t, missing)

	// other channels stay unconfirmed
	missing, err = store.FindUnmappedCategoryKeys(ctx, channel.ChannelZid, catalog.ScopeTop50)
	require.NoError(t, err)
	assert.Len(t, missing, 2)
}

func TestEnsureScopeLoadedSkipsWhenFull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// active scope never loads, even with a bogus path
	require.NoError(t, store.EnsureScopeLoaded(ctx, catalog.ScopeActive, "does-not-exist.csv"))

	// missing file for a loadable scope is a config error
	err := store.EnsureScopeLoaded(ctx, catalog.ScopeTop50, "does-not-exist.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConfig)
}

func TestRecordOrderEventDeduplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.db.DB.Create(&models.InventoryModel{
		SKU: "NGS-001", StockOnHand: 50, ReservedQty: 0, SafetyStock: 5,
	}).Error)

	ev := &channel.OrderEvent{
		ID:        uuid.NewString(),
		Channel:   channel.ChannelWoo,
		EventType: channel.EventOrders,
		OrderRef:  "1001",
		DedupeKey: "abc123",
		Items: []channel.OrderItem{
			{SKU: "NGS-001", Qty: 2},
		},
		ReceivedAt: time.Now().UTC(),
	}
	inserted, err := store.RecordOrderEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *ev
	dup.ID = uuid.NewString()
	inserted, err = store.RecordOrderEvent(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	// the duplicate applied nothing
	inv, err := store.GetInventories(ctx, []string{"NGS-001"})
	require.NoError(t, err)
	assert.Equal(t, 2, inv["NGS-001"].ReservedQty)
}

func TestRecordOrderEventMovesReservedStock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.db.DB.Create(&models.InventoryModel{
		SKU: "NGS-001", StockOnHand: 50, ReservedQty: 0, SafetyStock: 5,
	}).Error)

	// duplicate SKUs in one event are summed
	ev := &channel.OrderEvent{
		ID:        uuid.NewString(),
		Channel:   channel.ChannelZid,
		EventType: channel.EventOrders,
		OrderRef:  "2001",
		DedupeKey: "order-2001",
		Items: []channel.OrderItem{
			{SKU: "NGS-001", Qty: 2},
			{SKU: "NGS-001", Qty: 3},
			{SKU: "UNKNOWN", Qty: 1},
		},
		ReceivedAt: time.Now().UTC(),
	}
	_, err := store.RecordOrderEvent(ctx, ev)
	require.NoError(t, err)

	inv, err := store.GetInventories(ctx, []string{"NGS-001"})
	require.NoError(t, err)
	assert.Equal(t, 5, inv["NGS-001"].ReservedQty)
	assert.Equal(t, 40, inv["NGS-001"].SellableQty())

	// releases clamp at zero instead of going negative
	release := &channel.OrderEvent{
		ID:        uuid.NewString(),
		Channel:   channel.ChannelZid,
		EventType: channel.EventCancellations,
		OrderRef:  "2001",
		DedupeKey: "cancel-2001",
		Items: []channel.OrderItem{
			{SKU: "NGS-001", Qty: 99},
		},
		ReceivedAt: time.Now().UTC(),
	}
	_, err = store.RecordOrderEvent(ctx, release)
	require.NoError(t, err)

	inv, err = store.GetInventories(ctx, []string{"NGS-001"})
	require.NoError(t, err)
	assert.Equal(t, 0, inv["NGS-001"].ReservedQty)
}

func TestRecordOrderEventRollsBackOnApplyFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := &channel.OrderEvent{
		ID:        uuid.NewString(),
		Channel:   channel.ChannelWoo,
		EventType: channel.EventOrders,
		OrderRef:  "3001",
		DedupeKey: "order-3001",
		Items: []channel.OrderItem{
			{SKU: "NGS-001", Qty: 2},
		},
		ReceivedAt: time.Now().UTC(),
	}

	// break the inventory table so the apply step fails mid-transaction
	require.NoError(t, store.db.DB.Migrator().DropTable(&models.InventoryModel{}))
	_, err := store.RecordOrderEvent(ctx, ev)
	require.Error(t, err)

	// the event row must roll back with the failed apply, so a redelivery
	// is a fresh insert, not a duplicate that lost its reservation
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.db.DB.Create(&models.InventoryModel{
		SKU: "NGS-001", StockOnHand: 50, ReservedQty: 0, SafetyStock: 5,
	}).Error)

	retry := *ev
	retry.ID = uuid.NewString()
	inserted, err := store.RecordOrderEvent(ctx, &retry)
	require.NoError(t, err)
	assert.True(t, inserted)

	inv, err := store.GetInventories(ctx, []string{"NGS-001"})
	require.NoError(t, err)
	assert.Equal(t, 2, inv["NGS-001"].ReservedQty)
}

func TestUpsertChannelListing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := ListingUpdate{
		SKU:         "NGS-001",
		RemoteID:    "42",
		PayloadHash: "hash-1",
		Price:       decimal.NewFromInt(139),
		Qty:         10,
		Status:      "publish",
	}
	require.NoError(t, store.UpsertChannelListing(ctx, channel.ChannelWoo, first))

	second := first
	second.PayloadHash = "hash-2"
	second.Qty = 8
	second.Payload = `{"sku":"NGS-001"}`
	second.Response = `{"id":42}`
	require.NoError(t, store.UpsertChannelListing(ctx, channel.ChannelWoo, second))

	listings, err := store.GetListings(ctx, channel.ChannelWoo)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "hash-2", listings["NGS-001"].LastPayloadHash)
	assert.Equal(t, 8, listings["NGS-001"].LastQty)
	assert.Equal(t, "42", listings["NGS-001"].RemoteID)
	assert.Equal(t, `{"id":42}`, listings["NGS-001"].LastResponse)

	// a failed push keeps its error and clears the hash
	failed := ListingUpdate{
		SKU:      "NGS-001",
		RemoteID: "42",
		Payload:  `{"sku":"NGS-001"}`,
		Error:    "http 503",
	}
	require.NoError(t, store.UpsertChannelListing(ctx, channel.ChannelWoo, failed))

	listings, err = store.GetListings(ctx, channel.ChannelWoo)
	require.NoError(t, err)
	assert.Equal(t, "http 503", listings["NGS-001"].LastError)
	assert.Empty(t, listings["NGS-001"].LastPayloadHash)
}

func TestSyncJobLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetSyncLag(ctx, channel.ChannelSalla)
	require.NoError(t, err)
	assert.False(t, ok)

	jobID, err := store.StartSyncJob(ctx, channel.ModeCatalog, catalog.ScopeTop50, channel.ChannelSalla, false)
	require.NoError(t, err)

	summary := channel.SyncSummary{TotalCount: 3, SuccessCount: 2, FailedCount: 1}
	require.NoError(t, store.FinishSyncJob(ctx, jobID, models.JobStatusPartialFailure, summary, ""))

	lag, ok, err := store.GetSyncLag(ctx, channel.ChannelSalla)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Less(t, lag, time.Minute)
}
