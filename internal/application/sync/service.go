// Package sync orchestrates one push run: select the scope's items, price
// them for the channel, hand them to the connector, and persist the
// per-item outcomes.
package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/infrastructure/persistence"
)

// Options tunes one run
type Options struct {
	// DryRun renders payloads without network calls or listing updates
	DryRun bool
	// CSVPath is the scope's catalog export, used when the scope is not
	// loaded yet. Ignored for the active scope.
	CSVPath string
	// BatchDelay separates the segments of a reconcile run
	BatchDelay time.Duration
	// MaxAttempts is recorded on dead letters as the retry budget the item
	// exhausted before landing there
	MaxAttempts int
}

// Report is the JSON result of one run
type Report struct {
	JobID      string                         `json:"job_id"`
	Channel    channel.Channel                `json:"channel"`
	Mode       channel.SyncMode               `json:"mode"`
	Scope      catalog.Scope                  `json:"scope"`
	DryRun     bool                           `json:"dry_run"`
	Status     string                         `json:"status"`
	Summary    channel.SyncSummary            `json:"summary"`
	Segments   map[string]channel.SyncSummary `json:"segments,omitempty"`
	StartedAt  time.Time                      `json:"started_at"`
	FinishedAt time.Time                      `json:"finished_at"`
}

// Service runs sync jobs against the catalog store
type Service struct {
	store *persistence.Store
	log   *zap.Logger
}

// NewService creates the orchestrator
func NewService(store *persistence.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Run executes one sync run for a single channel. Item-level failures are
// collected into the report and the job finishes as partial_failure; the
// returned error is reserved for failures that prevent the run entirely.
func (s *Service) Run(ctx context.Context, conn channel.Connector, mode channel.SyncMode, scope catalog.Scope, opts Options) (*Report, error) {
	ch := conn.Name()
	startedAt := time.Now().UTC()

	if err := s.store.EnsureScopeLoaded(ctx, scope, opts.CSVPath); err != nil {
		return nil, err
	}

	items, err := s.buildItems(ctx, ch, scope)
	if err != nil {
		return nil, err
	}

	jobID, err := s.store.StartSyncJob(ctx, mode, scope, ch, opts.DryRun)
	if err != nil {
		return nil, err
	}

	report := &Report{
		JobID:     jobID,
		Channel:   ch,
		Mode:      mode,
		Scope:     scope,
		DryRun:    opts.DryRun,
		StartedAt: startedAt,
	}

	summary, segments, runErr := s.dispatch(ctx, conn, mode, items, opts.BatchDelay)
	report.Summary = summary
	report.Segments = segments

	if runErr != nil {
		_ = s.store.FinishSyncJob(ctx, jobID, "failed", summary, runErr.Error())
		report.Status = "failed"
		report.FinishedAt = time.Now().UTC()
		return report, runErr
	}

	if !opts.DryRun {
		s.persistResults(ctx, ch, mode, items, summary, opts.MaxAttempts)
	}

	status := "success"
	if summary.FailedCount > 0 {
		status = "partial_failure"
	}
	if err := s.store.FinishSyncJob(ctx, jobID, status, summary, ""); err != nil {
		return nil, err
	}

	report.Status = status
	report.FinishedAt = time.Now().UTC()
	s.log.Info("sync run finished",
		zap.String("job_id", jobID),
		zap.String("channel", ch.String()),
		zap.String("mode", mode.String()),
		zap.String("scope", scope.String()),
		zap.String("status", status),
		zap.Int("total", summary.TotalCount),
		zap.Int("failed", summary.FailedCount),
		zap.Bool("dry_run", opts.DryRun),
	)
	return report, nil
}

// dispatch runs the connector per mode. Reconcile runs catalog, inventory
// and pricing as separate segments with a delay between them, merged into
// one summary.
func (s *Service) dispatch(ctx context.Context, conn channel.Connector, mode channel.SyncMode, items []channel.ItemPayload, delay time.Duration) (channel.SyncSummary, map[string]channel.SyncSummary, error) {
	if mode != channel.ModeReconcile {
		summary, err := conn.Push(ctx, mode, items)
		return summary, nil, err
	}

	var merged channel.SyncSummary
	segments := make(map[string]channel.SyncSummary, 3)
	for i, segment := range []channel.SyncMode{channel.ModeCatalog, channel.ModeInventory, channel.ModePricing} {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return merged, segments, ctx.Err()
			case <-time.After(delay):
			}
		}
		summary, err := conn.Push(ctx, segment, items)
		if err != nil {
			return merged, segments, err
		}
		segments[segment.String()] = summary
		merged.Merge(summary)
	}
	return merged, segments, nil
}

// buildItems hydrates the scope's products into channel payloads
func (s *Service) buildItems(ctx context.Context, ch channel.Channel, scope catalog.Scope) ([]channel.ItemPayload, error) {
	products, err := s.store.GetProductsForScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		s.log.Warn("scope has no products",
			zap.String("scope", scope.String()),
			zap.String("channel", ch.String()),
		)
		return nil, nil
	}

	rule, err := s.store.GetPriceRule(ctx, ch)
	if err != nil {
		return nil, err
	}
	catmap, err := s.store.GetCategoryMapping(ctx, ch)
	if err != nil {
		return nil, err
	}

	skus := make([]string, 0, len(products))
	for _, p := range products {
		skus = append(skus, p.SKU)
	}
	inventories, err := s.store.GetInventories(ctx, skus)
	if err != nil {
		return nil, err
	}
	pricings, err := s.store.GetPricings(ctx, skus)
	if err != nil {
		return nil, err
	}
	listings, err := s.store.GetListings(ctx, ch)
	if err != nil {
		return nil, err
	}

	items := make([]channel.ItemPayload, 0, len(products))
	for _, p := range products {
		item := channel.ItemPayload{
			SKU:          p.SKU,
			NameAR:       p.NameAR,
			NameEN:       p.NameEN,
			DescAR:       p.DescAR,
			DescEN:       p.DescEN,
			Brand:        p.Brand,
			Status:       p.Status.String(),
			CategoryKey:  p.CategoryKey,
			CategoryName: catmap[p.CategoryKey],
			Weight:       p.Weight,
			Barcode:      p.Barcode,
			Images:       p.Images,
		}
		if inv, ok := inventories[p.SKU]; ok {
			item.SellableQty = inv.SellableQty()
		}
		if pr, ok := pricings[p.SKU]; ok {
			price := channel.ComputeChannelPrice(pr.BaseCostSAR, pr.TargetMarginPct, pr.VATIncluded, rule)
			item.PriceSAR = price.String()
			item.MarginPct = pr.TargetMarginPct.String()
			item.CostSAR = pr.BaseCostSAR.String()
		}
		if listing, ok := listings[p.SKU]; ok {
			item.RemoteID = listing.RemoteID
			item.RemoteVariantID = listing.RemoteVariantID
		}
		items = append(items, item)
	}
	return items, nil
}

// persistResults records a listing row for every pushed item and a dead
// letter for each failure. Failed items keep their error and raw exchange
// on the listing with an empty payload hash, so the trace survives until
// the next successful push overwrites it. Persistence errors here are
// logged, not returned: the push already happened and the report must
// still reach the operator.
func (s *Service) persistResults(ctx context.Context, ch channel.Channel, mode channel.SyncMode, items []channel.ItemPayload, summary channel.SyncSummary, maxAttempts int) {
	bySKU := make(map[string]channel.ItemPayload, len(items))
	for _, it := range items {
		bySKU[it.SKU] = it
	}

	for _, r := range summary.Items {
		item, ok := bySKU[r.SKU]
		if !ok {
			continue
		}

		update := persistence.ListingUpdate{
			SKU:             r.SKU,
			RemoteID:        firstNonEmpty(r.RemoteID, item.RemoteID),
			RemoteVariantID: firstNonEmpty(r.RemoteVariantID, item.RemoteVariantID),
			Payload:         string(r.Payload),
			Response:        string(r.Response),
			Qty:             item.SellableQty,
			Status:          item.Status,
		}
		if d, err := decimal.NewFromString(item.PriceSAR); err == nil {
			update.Price = d
		}
		if r.OK {
			update.PayloadHash = payloadHash(item)
		} else {
			update.Error = r.Error
		}
		if err := s.store.UpsertChannelListing(ctx, ch, update); err != nil {
			s.log.Error("failed to upsert listing", zap.String("sku", r.SKU), zap.Error(err))
		}

		if !r.OK {
			if err := s.store.QueueDeadLetter(ctx, ch, mode, r, maxAttempts); err != nil {
				s.log.Error("failed to queue dead letter", zap.String("sku", r.SKU), zap.Error(err))
			}
		}
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// payloadHash is the canonical fingerprint of a rendered item payload,
// stored on the listing as part of the audit trail. Remote identifiers
// are excluded: they are only known after the first push, and the
// fingerprint must stay stable across re-pushes of the same content.
func payloadHash(item channel.ItemPayload) string {
	item.RemoteID = ""
	item.RemoteVariantID = ""
	b, err := json.Marshal(item)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
