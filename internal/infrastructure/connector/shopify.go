package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/config"
)

const shopifyDefaultVendor = "NGS"

// ShopifyConnector pushes items to Shopify over the versioned Admin JSON
// API. Inventory and price updates are variant-level, keyed by the variant
// ID captured from the catalog push.
type ShopifyConnector struct {
	baseClient
	apiBase string
	token   string
}

var _ channel.Connector = (*ShopifyConnector)(nil)

// NewShopifyConnector creates the Shopify connector. Missing credentials
// fail fast unless the connector is constructed for a dry run.
func NewShopifyConnector(cfg config.ShopifyConfig, opts Options) (*ShopifyConnector, error) {
	if !opts.DryRun && (cfg.Store == "" || cfg.AdminToken == "") {
		return nil, fmt.Errorf("%w: shopify store and admin_token are required", shared.ErrConfig)
	}
	return &ShopifyConnector{
		baseClient: newBaseClient(opts),
		apiBase:    fmt.Sprintf("https://%s/admin/api/%s", cfg.Store, cfg.APIVersion),
		token:      cfg.AdminToken,
	}, nil
}

// Name returns the channel this connector serves
func (c *ShopifyConnector) Name() channel.Channel {
	return channel.ChannelShopify
}

// Ping verifies the token against the shop endpoint
func (c *ShopifyConnector) Ping(ctx context.Context) error {
	if c.dryRun {
		return nil
	}
	res := c.doJSON(ctx, "GET", c.apiBase+"/shop.json", c.headers(), nil)
	if !res.OK {
		return fmt.Errorf("shopify ping failed: %s", res.errorString())
	}
	return nil
}

// Push sends the items to Shopify
func (c *ShopifyConnector) Push(ctx context.Context, mode channel.SyncMode, items []channel.ItemPayload) (channel.SyncSummary, error) {
	if !mode.IsValid() || mode == channel.ModeReconcile {
		return channel.SyncSummary{}, fmt.Errorf("%w: %s", channel.ErrUnsupportedMode, mode)
	}
	var summary channel.SyncSummary
	for _, item := range items {
		summary.Add(c.pushOne(ctx, mode, item))
	}
	return summary, nil
}

func (c *ShopifyConnector) pushOne(ctx context.Context, mode channel.SyncMode, item channel.ItemPayload) channel.ItemResult {
	method, path, body := c.buildRequest(mode, item)
	result := channel.ItemResult{SKU: item.SKU, Payload: mustJSON(body)}

	if c.dryRun {
		result.OK = true
		result.Response = dryRunResult().Body
		return result
	}
	if path == "" {
		result.Error = fmt.Sprintf("sku %s has no shopify variant, run catalog sync first", item.SKU)
		return result
	}

	res := c.doJSON(ctx, method, c.apiBase+path, c.headers(), body)
	result.OK = res.OK
	result.StatusCode = res.StatusCode
	result.Response = res.Body
	if !res.OK {
		result.Error = res.errorString()
		return result
	}

	var created struct {
		Product struct {
			ID       int64 `json:"id"`
			Variants []struct {
				ID int64 `json:"id"`
			} `json:"variants"`
		} `json:"product"`
	}
	if json.Unmarshal(res.Body, &created) == nil && created.Product.ID != 0 {
		result.RemoteID = strconv.FormatInt(created.Product.ID, 10)
		if len(created.Product.Variants) > 0 {
			result.RemoteVariantID = strconv.FormatInt(created.Product.Variants[0].ID, 10)
		}
	}
	return result
}

// buildRequest maps a mode to the Admin API endpoint. Variant-level modes
// need the variant ID from a previous catalog push; an empty path signals
// the item has no variant yet.
func (c *ShopifyConnector) buildRequest(mode channel.SyncMode, item channel.ItemPayload) (method, path string, body map[string]any) {
	switch mode {
	case channel.ModeInventory:
		variant := map[string]any{"inventory_quantity": item.SellableQty}
		if item.RemoteVariantID == "" {
			return "", "", map[string]any{"variant": variant}
		}
		variant["id"] = item.RemoteVariantID
		return "PUT", "/variants/" + item.RemoteVariantID + ".json",
			map[string]any{"variant": variant}
	case channel.ModePricing:
		variant := map[string]any{"price": item.PriceSAR}
		if item.RemoteVariantID == "" {
			return "", "", map[string]any{"variant": variant}
		}
		variant["id"] = item.RemoteVariantID
		return "PUT", "/variants/" + item.RemoteVariantID + ".json",
			map[string]any{"variant": variant}
	default:
		status := "draft"
		if item.Status == "publish" {
			status = "active"
		}
		variant := map[string]any{
			"sku":                  item.SKU,
			"price":                item.PriceSAR,
			"inventory_management": "shopify",
			"inventory_quantity":   item.SellableQty,
			"weight_unit":          "kg",
		}
		if item.Weight > 0 {
			variant["weight"] = item.Weight
		}
		if item.Barcode != "" {
			variant["barcode"] = item.Barcode
		}
		product := map[string]any{
			"title":     item.NameEN,
			"body_html": item.DescEN,
			"vendor":    shopifyDefaultVendor,
			"status":    status,
			"variants":  []map[string]any{variant},
		}
		if item.Brand != "" {
			product["vendor"] = item.Brand
		}
		if item.CategoryName != "" {
			product["product_type"] = item.CategoryName
		}
		if len(item.Images) > 0 {
			images := make([]map[string]string, 0, len(item.Images))
			for _, img := range item.Images {
				images = append(images, map[string]string{"src": img})
			}
			product["images"] = images
		}
		if item.RemoteID != "" {
			return "PUT", "/products/" + item.RemoteID + ".json",
				map[string]any{"product": product}
		}
		return "POST", "/products.json", map[string]any{"product": product}
	}
}

func (c *ShopifyConnector) headers() map[string]string {
	return map[string]string{"X-Shopify-Access-Token": c.token}
}
