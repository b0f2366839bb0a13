package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/config"
)

// SallaConnector pushes items to Salla over the admin v2 API. Inventory
// and price updates go through their dedicated sub-resource endpoints.
type SallaConnector struct {
	baseClient
	apiBase string
	token   string
}

var _ channel.Connector = (*SallaConnector)(nil)

// NewSallaConnector creates the Salla connector. Missing credentials fail
// fast unless the connector is constructed for a dry run.
func NewSallaConnector(cfg config.SallaConfig, opts Options) (*SallaConnector, error) {
	if !opts.DryRun && cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: salla access_token is required", shared.ErrConfig)
	}
	return &SallaConnector{
		baseClient: newBaseClient(opts),
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		token:      cfg.AccessToken,
	}, nil
}

// Name returns the channel this connector serves
func (c *SallaConnector) Name() channel.Channel {
	return channel.ChannelSalla
}

// Ping verifies the token against the store info endpoint
func (c *SallaConnector) Ping(ctx context.Context) error {
	if c.dryRun {
		return nil
	}
	res := c.doJSON(ctx, "GET", c.apiBase+"/store/info", c.headers(), nil)
	if !res.OK {
		return fmt.Errorf("salla ping failed: %s", res.errorString())
	}
	return nil
}

// Push sends the items to Salla
func (c *SallaConnector) Push(ctx context.Context, mode channel.SyncMode, items []channel.ItemPayload) (channel.SyncSummary, error) {
	if !mode.IsValid() || mode == channel.ModeReconcile {
		return channel.SyncSummary{}, fmt.Errorf("%w: %s", channel.ErrUnsupportedMode, mode)
	}
	var summary channel.SyncSummary
	for _, item := range items {
		summary.Add(c.pushOne(ctx, mode, item))
	}
	return summary, nil
}

func (c *SallaConnector) pushOne(ctx context.Context, mode channel.SyncMode, item channel.ItemPayload) channel.ItemResult {
	method, path, body := c.buildRequest(mode, item)
	result := channel.ItemResult{SKU: item.SKU, Payload: mustJSON(body)}

	if c.dryRun {
		result.OK = true
		result.Response = dryRunResult().Body
		return result
	}
	if path == "" {
		result.Error = fmt.Sprintf("sku %s not listed on salla, run catalog sync first", item.SKU)
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
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if json.Unmarshal(res.Body, &created) == nil && created.Data.ID != 0 {
		result.RemoteID = strconv.FormatInt(created.Data.ID, 10)
	}
	return result
}

// buildRequest maps a mode to the admin v2 endpoint. Inventory and pricing
// need the remote product ID from a previous catalog push; an empty path
// signals the item is not listed yet.
func (c *SallaConnector) buildRequest(mode channel.SyncMode, item channel.ItemPayload) (method, path string, body map[string]any) {
	switch mode {
	case channel.ModeInventory:
		if item.RemoteID == "" {
			return "", "", map[string]any{"quantity": item.SellableQty}
		}
		return "PUT", "/products/" + item.RemoteID + "/quantity",
			map[string]any{"quantity": item.SellableQty}
	case channel.ModePricing:
		if item.RemoteID == "" {
			return "", "", map[string]any{"price": item.PriceSAR}
		}
		return "PUT", "/products/" + item.RemoteID + "/price",
			map[string]any{"price": item.PriceSAR}
	default:
		status := "hidden"
		if item.Status == "publish" {
			status = "sale"
		}
		body := map[string]any{
			"sku":          item.SKU,
			"name":         item.NameAR,
			"description":  item.DescAR,
			"price":        item.PriceSAR,
			"quantity":     item.SellableQty,
			"status":       status,
			"product_type": "product",
		}
		if item.CategoryName != "" {
			body["categories"] = []string{item.CategoryName}
		}
		if item.Weight > 0 {
			body["weight"] = item.Weight
		}
		if len(item.Images) > 0 {
			images := make([]map[string]string, 0, len(item.Images))
			for _, img := range item.Images {
				images = append(images, map[string]string{"original": img})
			}
			body["images"] = images
		}
		if item.RemoteID != "" {
			return "PUT", "/products/" + item.RemoteID, body
		}
		return "POST", "/products", body
	}
}

func (c *SallaConnector) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.token}
}
