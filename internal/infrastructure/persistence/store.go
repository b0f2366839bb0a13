package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/persistence/models"
)

// Store is the hub's catalog store. All operations work identically on
// PostgreSQL and SQLite; the handful of dialect differences are resolved
// here, never in callers.
type Store struct {
	db  *Database
	log *zap.Logger
}

// NewStore creates a store on an open database
func NewStore(db *Database, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// EnsureSchema creates or updates all hub tables. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.DB.WithContext(ctx).AutoMigrate(
		&models.ProductModel{},
		&models.InventoryModel{},
		&models.PricingModel{},
		&models.ChannelPriceRuleModel{},
		&models.ChannelCategoryMapModel{},
		&models.ChannelListingModel{},
		&models.OrderEventModel{},
		&models.SyncJobModel{},
		&models.DeadLetterModel{},
	)
}

// SeedPriceRules inserts the default price rule for every channel that has
// none yet. Existing rows are never touched, so operator edits survive
// reseeding. Returns the number of rules inserted.
func (s *Store) SeedPriceRules(ctx context.Context) (int, error) {
	inserted := 0
	for _, r := range channel.DefaultPriceRules() {
		row := models.ChannelPriceRuleModel{
			Channel:      r.Channel,
			FeePct:       r.FeePct,
			PaymentPct:   r.PaymentPct,
			OpsBufferSAR: r.OpsBufferSAR,
			RoundRule:    r.RoundRule,
			Active:       r.Active,
		}
		res := s.db.DB.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row)
		if res.Error != nil {
			return inserted, fmt.Errorf("failed to seed price rule for %s: %w", r.Channel, res.Error)
		}
		inserted += int(res.RowsAffected)
	}
	return inserted, nil
}

// GetPriceRule returns the active price rule for a channel. A missing or
// inactive rule is a configuration error: pricing must never silently fall
// back to zero fees.
func (s *Store) GetPriceRule(ctx context.Context, ch channel.Channel) (channel.PriceRule, error) {
	var row models.ChannelPriceRuleModel
	err := s.db.DB.WithContext(ctx).First(&row, "channel = ?", ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return channel.PriceRule{}, fmt.Errorf("%w: no price rule for channel %s", shared.ErrConfig, ch)
	}
	if err != nil {
		return channel.PriceRule{}, fmt.Errorf("failed to load price rule for %s: %w", ch, err)
	}
	if !row.Active {
		return channel.PriceRule{}, fmt.Errorf("%w: price rule for channel %s is inactive", shared.ErrConfig, ch)
	}
	return row.ToDomain(), nil
}

// SeedCategoryMap inserts an identity mapping row for every category key
// present in the scope's products, per channel, skipping keys already
// mapped. Seeded rows are unconfirmed placeholders; operators refine the
// remote names and confirm them afterwards. Returns the number of rows
// inserted.
func (s *Store) SeedCategoryMap(ctx context.Context, scope catalog.Scope) (int, error) {
	keys, err := s.distinctCategoryKeys(ctx, scope)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, key := range keys {
		for _, ch := range channel.All() {
			row := models.ChannelCategoryMapModel{
				ID:             uuid.NewString(),
				Channel:        ch,
				CategoryKey:    key,
				RemoteCategory: key,
			}
			res := s.db.DB.WithContext(ctx).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "channel"}, {Name: "category_key"}},
					DoNothing: true,
				}).
				Create(&row)
			if res.Error != nil {
				return inserted, fmt.Errorf("failed to seed category map: %w", res.Error)
			}
			inserted += int(res.RowsAffected)
		}
	}
	return inserted, nil
}

func (s *Store) distinctCategoryKeys(ctx context.Context, scope catalog.Scope) ([]string, error) {
	var keys []string
	q := s.db.DB.WithContext(ctx).Model(&models.ProductModel{}).
		Where("category_key <> ''").
		Distinct("category_key")
	if scope != catalog.ScopeActive {
		q = q.Where("source_scope = ?", scope)
	}
	if err := q.Pluck("category_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list category keys: %w", err)
	}
	return keys, nil
}

// GetCategoryMapping returns the category key to remote category mapping
// for a channel
func (s *Store) GetCategoryMapping(ctx context.Context, ch channel.Channel) (map[string]string, error) {
	var rows []models.ChannelCategoryMapModel
	if err := s.db.DB.WithContext(ctx).Where("channel = ?", ch).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load category map for %s: %w", ch, err)
	}
	mapping := make(map[string]string, len(rows))
	for _, r := range rows {
		mapping[r.CategoryKey] = r.RemoteCategory
	}
	return mapping, nil
}

// EnsureScopeLoaded loads the scope's CSV export only when the store holds
// fewer products for that scope than its nominal size. The active scope is
// never bulk-loaded.
func (s *Store) EnsureScopeLoaded(ctx context.Context, scope catalog.Scope, csvPath string) error {
	if !scope.Loadable() {
		return nil
	}
	count, err := s.CountProductsForScope(ctx, scope)
	if err != nil {
		return err
	}
	if count >= int64(scope.NominalSize()) {
		return nil
	}
	loaded, err := s.LoadProductsFromCSV(ctx, scope, csvPath)
	if err != nil {
		return err
	}
	s.log.Info("loaded scope from csv",
		zap.String("scope", scope.String()),
		zap.String("path", csvPath),
		zap.Int("products", loaded),
	)
	return nil
}

// CountProductsForScope returns the number of products sourced from a scope
func (s *Store) CountProductsForScope(ctx context.Context, scope catalog.Scope) (int64, error) {
	var count int64
	q := s.db.DB.WithContext(ctx).Model(&models.ProductModel{})
	if scope == catalog.ScopeActive {
		q = q.Where("status = ?", catalog.ProductStatusPublish)
	} else {
		q = q.Where("source_scope = ?", scope)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products for scope %s: %w", scope, err)
	}
	return count, nil
}

// GetProductsForScope returns the products selected by a scope. Named
// scopes select by load source; the active scope selects everything
// currently published, whatever scope it arrived through.
func (s *Store) GetProductsForScope(ctx context.Context, scope catalog.Scope) ([]*catalog.Product, error) {
	var rows []models.ProductModel
	q := s.db.DB.WithContext(ctx).Order("sku")
	if scope == catalog.ScopeActive {
		q = q.Where("status = ?", catalog.ProductStatusPublish)
	} else {
		q = q.Where("source_scope = ?", scope)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load products for scope %s: %w", scope, err)
	}
	products := make([]*catalog.Product, 0, len(rows))
	for i := range rows {
		products = append(products, rows[i].ToDomain())
	}
	return products, nil
}

// GetInventories returns the inventory rows for the given SKUs, keyed by SKU
func (s *Store) GetInventories(ctx context.Context, skus []string) (map[string]*catalog.Inventory, error) {
	var rows []models.InventoryModel
	if err := s.db.DB.WithContext(ctx).Where("sku IN ?", skus).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load inventories: %w", err)
	}
	out := make(map[string]*catalog.Inventory, len(rows))
	for i := range rows {
		out[rows[i].SKU] = rows[i].ToDomain()
	}
	return out, nil
}

// GetPricings returns the pricing rows for the given SKUs, keyed by SKU
func (s *Store) GetPricings(ctx context.Context, skus []string) (map[string]*catalog.Pricing, error) {
	var rows []models.PricingModel
	if err := s.db.DB.WithContext(ctx).Where("sku IN ?", skus).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load pricings: %w", err)
	}
	out := make(map[string]*catalog.Pricing, len(rows))
	for i := range rows {
		out[rows[i].SKU] = rows[i].ToDomain()
	}
	return out, nil
}

// GetListings returns the channel's listing records keyed by SKU
func (s *Store) GetListings(ctx context.Context, ch channel.Channel) (map[string]*models.ChannelListingModel, error) {
	var rows []models.ChannelListingModel
	if err := s.db.DB.WithContext(ctx).Where("channel = ?", ch).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings for %s: %w", ch, err)
	}
	out := make(map[string]*models.ChannelListingModel, len(rows))
	for i := range rows {
		out[rows[i].SKU] = &rows[i]
	}
	return out, nil
}

// ListingUpdate carries the state persisted after pushing one item. Error
// is set for failed pushes; PayloadHash only for successful ones.
type ListingUpdate struct {
	SKU             string
	RemoteID        string
	RemoteVariantID string
	PayloadHash     string
	Payload         string
	Response        string
	Error           string
	Price           decimal.Decimal
	Qty             int
	Status          string
}

// UpsertChannelListing records the last push outcome for a channel/SKU pair
func (s *Store) UpsertChannelListing(ctx context.Context, ch channel.Channel, u ListingUpdate) error {
	now := time.Now().UTC()
	row := models.ChannelListingModel{
		ID:              uuid.NewString(),
		Channel:         ch,
		SKU:             u.SKU,
		RemoteID:        u.RemoteID,
		RemoteVariantID: u.RemoteVariantID,
		LastPayloadHash: u.PayloadHash,
		LastPayload:     u.Payload,
		LastResponse:    u.Response,
		LastError:       u.Error,
		LastPrice:       u.Price,
		LastQty:         u.Qty,
		LastStatus:      u.Status,
		LastSyncedAt:    &now,
	}
	err := s.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"remote_id", "remote_variant_id", "last_payload_hash",
				"last_payload", "last_response", "last_error",
				"last_price", "last_qty", "last_status", "last_synced_at", "updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert listing %s/%s: %w", ch, u.SKU, err)
	}
	return nil
}

// StartSyncJob records the start of a sync run and returns the job ID
func (s *Store) StartSyncJob(ctx context.Context, mode channel.SyncMode, scope catalog.Scope, ch channel.Channel, dryRun bool) (string, error) {
	job := models.SyncJobModel{
		ID:        uuid.NewString(),
		Mode:      mode.String(),
		Scope:     scope.String(),
		Channel:   ch,
		Status:    models.JobStatusRunning,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.DB.WithContext(ctx).Create(&job).Error; err != nil {
		return "", fmt.Errorf("failed to create sync job: %w", err)
	}
	return job.ID, nil
}

// FinishSyncJob closes a sync run with its final status and counts
func (s *Store) FinishSyncJob(ctx context.Context, jobID, status string, summary channel.SyncSummary, errMsg string) error {
	now := time.Now().UTC()
	err := s.db.DB.WithContext(ctx).Model(&models.SyncJobModel{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":        status,
			"total_count":   summary.TotalCount,
			"success_count": summary.SuccessCount,
			"failed_count":  summary.FailedCount,
			"error":         errMsg,
			"finished_at":   &now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to finish sync job %s: %w", jobID, err)
	}
	return nil
}

// QueueDeadLetter stores a failed item push for later replay
func (s *Store) QueueDeadLetter(ctx context.Context, ch channel.Channel, mode channel.SyncMode, r channel.ItemResult, attempts int) error {
	row := models.DeadLetterModel{
		ID:       uuid.NewString(),
		Channel:  ch,
		SKU:      r.SKU,
		Mode:     mode.String(),
		Payload:  string(r.Payload),
		Response: string(r.Response),
		Reason:   r.Error,
		Attempts: attempts,
	}
	if err := s.db.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to queue dead letter for %s/%s: %w", ch, r.SKU, err)
	}
	return nil
}

// GetDeadLetters returns the channel's dead letters, newest first
func (s *Store) GetDeadLetters(ctx context.Context, ch channel.Channel) ([]models.DeadLetterModel, error) {
	var rows []models.DeadLetterModel
	err := s.db.DB.WithContext(ctx).
		Where("channel = ?", ch).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load dead letters for %s: %w", ch, err)
	}
	return rows, nil
}

// RecordOrderEvent durably stores a webhook event and applies its
// reservation deltas in a single transaction. A duplicate dedupe key
// returns (false, nil) and changes nothing: the unique index is the
// durable idempotency guard, the cache fast path is advisory only. Any
// failure rolls back both the event row and the inventory changes, so a
// redelivery starts from a clean slate instead of finding a half-applied
// event.
func (s *Store) RecordOrderEvent(ctx context.Context, ev *channel.OrderEvent) (bool, error) {
	row := models.OrderEventModel{
		ID:         ev.ID,
		Channel:    ev.Channel,
		EventType:  ev.EventType.String(),
		OrderRef:   ev.OrderRef,
		DedupeKey:  ev.DedupeKey,
		Payload:    string(ev.Payload),
		ReceivedAt: ev.ReceivedAt,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	clampFn := "MAX"
	if s.db.IsPostgres() {
		clampFn = "GREATEST"
	}

	inserted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "dedupe_key"}},
				DoNothing: true,
			}).
			Create(&row)
		if res.Error != nil {
			return fmt.Errorf("failed to insert order event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true

		// Duplicate SKUs within one event are summed first, then each SKU
		// gets a single clamped statement so concurrent events cannot drive
		// the reservation negative. SKUs without an inventory row are
		// skipped and logged; the event remains recorded for audit.
		for sku, delta := range ev.SumItemQuantities() {
			expr := fmt.Sprintf("%s(reserved_qty + ?, 0)", clampFn)
			upd := tx.WithContext(ctx).Model(&models.InventoryModel{}).
				Where("sku = ?", sku).
				Update("reserved_qty", gorm.Expr(expr, delta))
			if upd.Error != nil {
				return fmt.Errorf("failed to apply delta for sku %s: %w", sku, upd.Error)
			}
			if upd.RowsAffected == 0 {
				s.log.Warn("order event references unknown sku",
					zap.String("sku", sku),
					zap.String("channel", ev.Channel.String()),
					zap.String("order_ref", ev.OrderRef),
				)
			}
		}

		now := time.Now().UTC()
		return tx.WithContext(ctx).Model(&models.OrderEventModel{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{"applied": true, "applied_at": &now}).Error
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// GetSyncLag returns the time since the channel's last successful or
// partially successful sync run. ok is false when the channel has never
// completed a run.
func (s *Store) GetSyncLag(ctx context.Context, ch channel.Channel) (time.Duration, bool, error) {
	var job models.SyncJobModel
	err := s.db.DB.WithContext(ctx).
		Where("channel = ? AND status IN ? AND finished_at IS NOT NULL",
			ch, []string{models.JobStatusSuccess, models.JobStatusPartialFailure}).
		Order("finished_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load last sync job for %s: %w", ch, err)
	}
	return time.Since(*job.FinishedAt), true, nil
}

// FindProductsMissingNames returns SKUs in the scope lacking either name
func (s *Store) FindProductsMissingNames(ctx context.Context, scope catalog.Scope) ([]string, error) {
	var skus []string
	q := s.db.DB.WithContext(ctx).Model(&models.ProductModel{}).
		Where("name_ar = '' OR name_en = ''")
	if scope != catalog.ScopeActive {
		q = q.Where("source_scope = ?", scope)
	} else {
		q = q.Where("status = ?", catalog.ProductStatusPublish)
	}
	if err := q.Pluck("sku", &skus).Error; err != nil {
		return nil, fmt.Errorf("failed to find products missing names: %w", err)
	}
	return skus, nil
}

// ConfirmCategoryMappings marks a channel's mapping rows as confirmed,
// either the given keys or every row for the channel when keys is empty.
// Returns the number of rows flipped.
func (s *Store) ConfirmCategoryMappings(ctx context.Context, ch channel.Channel, keys []string) (int, error) {
	q := s.db.DB.WithContext(ctx).Model(&models.ChannelCategoryMapModel{}).
		Where("channel = ? AND confirmed = ?", ch, false)
	if len(keys) > 0 {
		q = q.Where("category_key IN ?", keys)
	}
	res := q.Update("confirmed", true)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to confirm category mappings for %s: %w", ch, res.Error)
	}
	return int(res.RowsAffected), nil
}

// FindUnmappedCategoryKeys returns category keys used by the scope's
// products that lack a confirmed mapping row for the channel. Seeded
// placeholders count as missing until an operator confirms them.
func (s *Store) FindUnmappedCategoryKeys(ctx context.Context, ch channel.Channel, scope catalog.Scope) ([]string, error) {
	keys, err := s.distinctCategoryKeys(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	var confirmedKeys []string
	err = s.db.DB.WithContext(ctx).Model(&models.ChannelCategoryMapModel{}).
		Where("channel = ? AND confirmed = ?", ch, true).
		Pluck("category_key", &confirmedKeys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmed category keys for %s: %w", ch, err)
	}
	confirmed := make(map[string]bool, len(confirmedKeys))
	for _, k := range confirmedKeys {
		confirmed[k] = true
	}
	var missing []string
	for _, k := range keys {
		if !confirmed[k] {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

// FindNegativeInventories returns SKUs whose stored inventory violates the
// non-negativity invariants
func (s *Store) FindNegativeInventories(ctx context.Context) ([]string, error) {
	var skus []string
	err := s.db.DB.WithContext(ctx).Model(&models.InventoryModel{}).
		Where("stock_on_hand < 0 OR reserved_qty < 0 OR safety_stock < 0").
		Pluck("sku", &skus).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find negative inventories: %w", err)
	}
	return skus, nil
}
