package connector

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/config"
)

// ZidConnector pushes items to Zid. With an access token it talks to the
// merchant API; without one it degrades to writing a timestamped CSV batch
// the merchant imports through the Zid dashboard. The fallback is a
// supported operating mode, not an error.
type ZidConnector struct {
	baseClient
	apiBase   string
	token     string
	exportDir string
}

var _ channel.Connector = (*ZidConnector)(nil)

// NewZidConnector creates the Zid connector. Unlike the other channels a
// missing token is not a configuration error: it selects CSV export mode.
func NewZidConnector(cfg config.ZidConfig, opts Options) (*ZidConnector, error) {
	if cfg.AccessToken == "" && cfg.ExportDir == "" && !opts.DryRun {
		return nil, fmt.Errorf("%w: zid needs either access_token or export_dir", shared.ErrConfig)
	}
	return &ZidConnector{
		baseClient: newBaseClient(opts),
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		token:      cfg.AccessToken,
		exportDir:  cfg.ExportDir,
	}, nil
}

// Name returns the channel this connector serves
func (c *ZidConnector) Name() channel.Channel {
	return channel.ChannelZid
}

// Ping verifies API connectivity; in CSV mode it verifies the export
// directory is writable.
func (c *ZidConnector) Ping(ctx context.Context) error {
	if c.dryRun {
		return nil
	}
	if c.token == "" {
		return os.MkdirAll(c.exportDir, 0755)
	}
	res := c.doJSON(ctx, "GET", c.apiBase+"/managers/account/profile", c.headers(), nil)
	if !res.OK {
		return fmt.Errorf("zid ping failed: %s", res.errorString())
	}
	return nil
}

// Push sends the items to Zid over the API, or writes a CSV batch when no
// token is configured.
func (c *ZidConnector) Push(ctx context.Context, mode channel.SyncMode, items []channel.ItemPayload) (channel.SyncSummary, error) {
	if !mode.IsValid() || mode == channel.ModeReconcile {
		return channel.SyncSummary{}, fmt.Errorf("%w: %s", channel.ErrUnsupportedMode, mode)
	}
	if c.token == "" && !c.dryRun {
		return c.pushCSV(mode, items)
	}

	var summary channel.SyncSummary
	for _, item := range items {
		summary.Add(c.pushOne(ctx, mode, item))
	}
	return summary, nil
}

func (c *ZidConnector) pushOne(ctx context.Context, mode channel.SyncMode, item channel.ItemPayload) channel.ItemResult {
	body := c.buildBody(mode, item)
	result := channel.ItemResult{SKU: item.SKU, Payload: mustJSON(body)}

	if c.dryRun {
		result.OK = true
		result.Response = dryRunResult().Body
		return result
	}

	var res apiResult
	if item.RemoteID != "" {
		res = c.doJSON(ctx, "PATCH", c.apiBase+"/products/"+item.RemoteID, c.headers(), body)
	} else if mode == channel.ModeCatalog {
		res = c.doJSON(ctx, "POST", c.apiBase+"/products", c.headers(), body)
	} else {
		result.Error = fmt.Sprintf("sku %s not listed on zid, run catalog sync first", item.SKU)
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
		ID string `json:"id"`
	}
	if json.Unmarshal(res.Body, &created) == nil && created.ID != "" {
		result.RemoteID = created.ID
	}
	return result
}

func (c *ZidConnector) buildBody(mode channel.SyncMode, item channel.ItemPayload) map[string]any {
	switch mode {
	case channel.ModeInventory:
		return map[string]any{"quantity": item.SellableQty, "is_infinite": false}
	case channel.ModePricing:
		return map[string]any{"price": item.PriceSAR}
	default:
		body := map[string]any{
			"sku":         item.SKU,
			"name":        map[string]string{"ar": item.NameAR, "en": item.NameEN},
			"description": map[string]string{"ar": item.DescAR, "en": item.DescEN},
			"price":       item.PriceSAR,
			"quantity":    item.SellableQty,
			"is_infinite": false,
			"is_draft":    item.Status != "publish",
		}
		if item.CategoryName != "" {
			body["categories"] = []string{item.CategoryName}
		}
		if item.Weight > 0 {
			body["weight"] = map[string]any{"value": item.Weight, "unit": "kg"}
		}
		if item.Barcode != "" {
			body["barcode"] = item.Barcode
		}
		if len(item.Images) > 0 {
			body["images"] = item.Images
		}
		return body
	}
}

var zidCSVHeader = []string{
	"SKU", "Name AR", "Name EN", "Description AR", "Description EN",
	"Price", "Quantity", "Category", "Brand", "Weight", "Barcode",
	"Images", "Status",
}

// pushCSV writes one timestamped CSV batch covering all items. Every item
// in a successfully written batch counts as succeeded; the file path is
// recorded as each item's response.
func (c *ZidConnector) pushCSV(mode channel.SyncMode, items []channel.ItemPayload) (channel.SyncSummary, error) {
	if err := os.MkdirAll(c.exportDir, 0755); err != nil {
		return channel.SyncSummary{}, fmt.Errorf("failed to create zid export dir: %w", err)
	}
	name := fmt.Sprintf("zid-%s-%s.csv", mode, time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(c.exportDir, name)

	f, err := os.Create(path)
	if err != nil {
		return channel.SyncSummary{}, fmt.Errorf("failed to create zid export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(zidCSVHeader); err != nil {
		return channel.SyncSummary{}, fmt.Errorf("failed to write zid export header: %w", err)
	}
	for _, item := range items {
		rec := []string{
			item.SKU, item.NameAR, item.NameEN, item.DescAR, item.DescEN,
			item.PriceSAR, strconv.Itoa(item.SellableQty), item.CategoryName,
			item.Brand, strconv.FormatFloat(item.Weight, 'f', -1, 64),
			item.Barcode, strings.Join(item.Images, ","), item.Status,
		}
		if err := w.Write(rec); err != nil {
			return channel.SyncSummary{}, fmt.Errorf("failed to write zid export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return channel.SyncSummary{}, fmt.Errorf("failed to flush zid export: %w", err)
	}

	c.log.Info("wrote zid csv export batch",
		zap.String("path", path),
		zap.Int("items", len(items)),
	)

	response := mustJSON(map[string]string{"export_file": path})
	var summary channel.SyncSummary
	for _, item := range items {
		summary.Add(channel.ItemResult{SKU: item.SKU, OK: true, Response: response})
	}
	return summary, nil
}

func (c *ZidConnector) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.token}
}
