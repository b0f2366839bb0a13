package connector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/config"
)

const wooMaxImages = 8

// WooConnector pushes items to a WooCommerce store over the WC REST v3 API
type WooConnector struct {
	baseClient
	apiBase string
	auth    string
}

var _ channel.Connector = (*WooConnector)(nil)

// NewWooConnector creates the WooCommerce connector. Missing credentials
// fail fast unless the connector is constructed for a dry run.
func NewWooConnector(cfg config.WooConfig, opts Options) (*WooConnector, error) {
	if !opts.DryRun && (cfg.StoreURL == "" || cfg.ConsumerKey == "" || cfg.ConsumerSecret == "") {
		return nil, fmt.Errorf("%w: woo store_url, consumer_key and consumer_secret are required", shared.ErrConfig)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.ConsumerKey + ":" + cfg.ConsumerSecret))
	return &WooConnector{
		baseClient: newBaseClient(opts),
		apiBase:    strings.TrimRight(cfg.StoreURL, "/") + "/wp-json/wc/v3",
		auth:       "Basic " + creds,
	}, nil
}

// Name returns the channel this connector serves
func (c *WooConnector) Name() channel.Channel {
	return channel.ChannelWoo
}

// Ping verifies the store is reachable with the configured credentials
func (c *WooConnector) Ping(ctx context.Context) error {
	if c.dryRun {
		return nil
	}
	res := c.doJSON(ctx, "GET", c.apiBase+"/products?per_page=1", c.headers(), nil)
	if !res.OK {
		return fmt.Errorf("woo ping failed: %s", res.errorString())
	}
	return nil
}

// Push sends the items to WooCommerce. Catalog mode creates or updates the
// full product by SKU lookup; inventory and pricing modes patch the
// existing product only.
func (c *WooConnector) Push(ctx context.Context, mode channel.SyncMode, items []channel.ItemPayload) (channel.SyncSummary, error) {
	var summary channel.SyncSummary
	for _, item := range items {
		summary.Add(c.pushOne(ctx, mode, item))
	}
	return summary, nil
}

func (c *WooConnector) pushOne(ctx context.Context, mode channel.SyncMode, item channel.ItemPayload) channel.ItemResult {
	body, err := c.buildBody(mode, item)
	if err != nil {
		return channel.ItemResult{SKU: item.SKU, Error: err.Error()}
	}

	result := channel.ItemResult{SKU: item.SKU, Payload: mustJSON(body)}
	if c.dryRun {
		res := dryRunResult()
		result.OK = true
		result.Response = res.Body
		return result
	}

	productID, err := c.lookupBySKU(ctx, item.SKU)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var res apiResult
	switch {
	case productID != 0:
		res = c.doJSON(ctx, "PUT", fmt.Sprintf("%s/products/%d", c.apiBase, productID), c.headers(), body)
	case mode == channel.ModeCatalog:
		res = c.doJSON(ctx, "POST", c.apiBase+"/products", c.headers(), body)
	default:
		result.Error = fmt.Sprintf("sku %s not listed on woo, run catalog sync first", item.SKU)
		return result
	}

	result.OK = res.OK
	result.StatusCode = res.StatusCode
	result.Response = res.Body
	if !res.OK {
		result.Error = res.errorString()
		return result
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if json.Unmarshal(res.Body, &created) == nil && created.ID != 0 {
		result.RemoteID = strconv.FormatInt(created.ID, 10)
	}
	return result
}

// lookupBySKU returns the WooCommerce product ID for a SKU, 0 when unlisted
func (c *WooConnector) lookupBySKU(ctx context.Context, sku string) (int64, error) {
	lookup := fmt.Sprintf("%s/products?sku=%s", c.apiBase, url.QueryEscape(sku))
	res := c.doJSON(ctx, "GET", lookup, c.headers(), nil)
	if !res.OK {
		return 0, fmt.Errorf("woo sku lookup failed: %s", res.errorString())
	}
	var found []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(res.Body, &found); err != nil {
		return 0, fmt.Errorf("woo sku lookup returned invalid json: %w", err)
	}
	if len(found) == 0 {
		return 0, nil
	}
	return found[0].ID, nil
}

func (c *WooConnector) buildBody(mode channel.SyncMode, item channel.ItemPayload) (map[string]any, error) {
	switch mode {
	case channel.ModeInventory:
		return map[string]any{
			"manage_stock":   true,
			"stock_quantity": item.SellableQty,
		}, nil
	case channel.ModePricing:
		return map[string]any{
			"regular_price": item.PriceSAR,
		}, nil
	case channel.ModeCatalog:
		body := map[string]any{
			"sku":            item.SKU,
			"type":           "simple",
			"name":           item.NameAR,
			"description":    item.DescAR,
			"regular_price":  item.PriceSAR,
			"manage_stock":   true,
			"stock_quantity": item.SellableQty,
			"status":         item.Status,
		}
		if item.Weight > 0 {
			body["weight"] = strconv.FormatFloat(item.Weight, 'f', -1, 64)
		}
		if item.CategoryName != "" {
			body["categories"] = []map[string]string{{"name": item.CategoryName}}
		}
		if item.Brand != "" {
			body["tags"] = []map[string]string{{"name": item.Brand}}
		}
		if len(item.Images) > 0 {
			images := item.Images
			if len(images) > wooMaxImages {
				images = images[:wooMaxImages]
			}
			srcs := make([]map[string]string, 0, len(images))
			for _, img := range images {
				srcs = append(srcs, map[string]string{"src": img})
			}
			body["images"] = srcs
		}
		if item.Barcode != "" {
			body["meta_data"] = []map[string]string{{"key": "_barcode", "value": item.Barcode}}
		}
		return body, nil
	default:
		return nil, fmt.Errorf("%w: %s", channel.ErrUnsupportedMode, mode)
	}
}

func (c *WooConnector) headers() map[string]string {
	return map[string]string{"Authorization": c.auth}
}
