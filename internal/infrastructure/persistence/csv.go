package persistence

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/persistence/models"
)

// Column names of the WooCommerce product export format the catalog team
// hands over
const (
	colSKU         = "SKU"
	colName        = "Name"
	colDescription = "Description"
	colPrice       = "Regular price"
	colMargin      = "Meta: _margin"
	colCost        = "Meta: _cost"
	colStock       = "Stock"
	colImages      = "Images"
	colPublished   = "Published"
	colBrands      = "Brands"
	colCategories  = "Categories"
	colWeight      = "Weight (kg)"
	colBarcode     = "Barcode"
)

// LoadProductsFromCSV loads a scope's product export into the store,
// upserting by SKU. Rows without a SKU are skipped. Product content and
// pricing are fully overwritten on reload; inventory keeps its reserved
// quantity so webhook-applied reservations survive a reload. Category map
// rows are seeded for every channel from the categories seen. Returns the
// number of products loaded.
func (s *Store) LoadProductsFromCSV(ctx context.Context, scope catalog.Scope, path string) (int, error) {
	if !scope.Loadable() {
		return 0, fmt.Errorf("%w: scope %s cannot be loaded from a file", shared.ErrConfig, scope)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot open catalog export %s: %v", shared.ErrConfig, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: cannot read header of %s: %v", shared.ErrConfig, path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col[colSKU]; !ok {
		return 0, fmt.Errorf("%w: %s has no %q column", shared.ErrConfig, path, colSKU)
	}

	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	loaded := 0
	categories := make(map[string]string) // key -> display name
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			field := func(name string) string {
				i, ok := col[name]
				if !ok || i >= len(rec) {
					return ""
				}
				return strings.TrimSpace(rec[i])
			}

			sku := field(colSKU)
			if sku == "" {
				continue
			}

			nameAR, nameEN := splitBilingual(field(colName))
			descAR, descEN := splitBilingual(field(colDescription))
			categoryName := firstListEntry(field(colCategories))
			categoryKey := ""
			if categoryName != "" {
				categoryKey = slug.Make(categoryName)
				categories[categoryKey] = categoryName
			}

			product := models.ProductModel{
				SKU:         sku,
				NameAR:      nameAR,
				NameEN:      nameEN,
				DescAR:      descAR,
				DescEN:      descEN,
				Brand:       firstListEntry(field(colBrands)),
				Status:      parsePublished(field(colPublished)),
				CategoryKey: categoryKey,
				Weight:      parseFloat(field(colWeight)),
				Barcode:     field(colBarcode),
				Images:      imagesJSON(field(colImages)),
				SourceScope: scope,
			}
			if err := tx.WithContext(ctx).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "sku"}},
					UpdateAll: true,
				}).
				Create(&product).Error; err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", sku, err)
			}

			inventory := models.InventoryModel{
				SKU:         sku,
				StockOnHand: parseInt(field(colStock)),
			}
			if err := tx.WithContext(ctx).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "sku"}},
					DoUpdates: clause.AssignmentColumns([]string{"stock_on_hand", "updated_at"}),
				}).
				Create(&inventory).Error; err != nil {
				return fmt.Errorf("failed to upsert inventory %s: %w", sku, err)
			}

			price := parseDecimal(field(colPrice))
			margin := parseDecimal(field(colMargin))
			cost := parseDecimal(field(colCost))
			if cost.IsZero() && price.IsPositive() {
				cost = catalog.DeriveCostFromPrice(price, margin)
			}
			pricing := models.PricingModel{
				SKU:             sku,
				BaseCostSAR:     cost,
				TargetMarginPct: margin,
				VATIncluded:     true,
			}
			if err := tx.WithContext(ctx).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "sku"}},
					UpdateAll: true,
				}).
				Create(&pricing).Error; err != nil {
				return fmt.Errorf("failed to upsert pricing %s: %w", sku, err)
			}

			loaded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.seedCategoryRows(ctx, categories); err != nil {
		return loaded, err
	}
	return loaded, nil
}

// seedCategoryRows inserts an unconfirmed mapping row per channel for each
// category seen in a load, carrying the export's display name as the
// initial remote category. Existing mappings are never overwritten.
func (s *Store) seedCategoryRows(ctx context.Context, categories map[string]string) error {
	for key, name := range categories {
		for _, ch := range channel.All() {
			row := models.ChannelCategoryMapModel{
				ID:             uuid.NewString(),
				Channel:        ch,
				CategoryKey:    key,
				RemoteCategory: name,
			}
			err := s.db.DB.WithContext(ctx).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "channel"}, {Name: "category_key"}},
					DoNothing: true,
				}).
				Create(&row).Error
			if err != nil {
				return fmt.Errorf("failed to seed category mapping %s/%s: %w", ch, key, err)
			}
		}
	}
	return nil
}

// splitBilingual splits a "Arabic | English" field. Single-valued fields
// fill both slots; the validator flags genuinely missing names.
func splitBilingual(v string) (ar, en string) {
	parts := strings.SplitN(v, "|", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return v, v
}

// firstListEntry takes the first entry of a comma-separated export field
func firstListEntry(v string) string {
	if v == "" {
		return ""
	}
	return strings.TrimSpace(strings.Split(v, ",")[0])
}

func parsePublished(v string) catalog.ProductStatus {
	if v == "1" || strings.EqualFold(v, "true") {
		return catalog.ProductStatusPublish
	}
	return catalog.ProductStatusDraft
}

func parseInt(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func parseDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func imagesJSON(v string) string {
	if v == "" {
		return ""
	}
	var urls []string
	for _, u := range strings.Split(v, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return ""
	}
	b, _ := json.Marshal(urls)
	return string(b)
}
