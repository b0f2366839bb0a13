package channel

import "encoding/json"

// ItemPayload is the closed, channel-neutral item snapshot handed to a
// connector during a sync run. Connectors translate it into their own wire
// format; they never receive raw store rows.
type ItemPayload struct {
	SKU          string   `json:"sku"`
	NameAR       string   `json:"name_ar"`
	NameEN       string   `json:"name_en"`
	DescAR       string   `json:"desc_ar,omitempty"`
	DescEN       string   `json:"desc_en,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	Status       string   `json:"status"`
	CategoryKey  string   `json:"category_key,omitempty"`
	CategoryName string   `json:"category_name,omitempty"`
	Weight       float64  `json:"weight,omitempty"`
	Barcode      string   `json:"barcode,omitempty"`
	Images       []string `json:"images,omitempty"`
	SellableQty  int      `json:"sellable_qty"`
	PriceSAR     string   `json:"price_sar"`
	MarginPct    string   `json:"margin_pct"`
	CostSAR      string   `json:"cost_sar"`

	// RemoteID and RemoteVariantID carry the channel's own identifiers from
	// the listing record, when a previous push established them. Shopify
	// keys inventory and price updates on the variant ID.
	RemoteID        string `json:"remote_id,omitempty"`
	RemoteVariantID string `json:"remote_variant_id,omitempty"`
}

// ItemResult records the outcome of pushing a single item to a channel.
// Payload and Response are kept verbatim for the audit trail and for
// dead-letter replay.
type ItemResult struct {
	SKU             string          `json:"sku"`
	OK              bool            `json:"ok"`
	StatusCode      int             `json:"status_code,omitempty"`
	RemoteID        string          `json:"remote_id,omitempty"`
	RemoteVariantID string          `json:"remote_variant_id,omitempty"`
	Error           string          `json:"error,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Response        json.RawMessage `json:"response,omitempty"`
}

// SyncSummary aggregates per-item results of one connector run. Items
// holds every result in push order, succeeded and failed alike, so callers
// can persist remote IDs from successes and dead-letter the failures.
type SyncSummary struct {
	TotalCount   int          `json:"total_count"`
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
	Items        []ItemResult `json:"items,omitempty"`
}

// Add folds one item result into the summary
func (s *SyncSummary) Add(r ItemResult) {
	s.TotalCount++
	if r.OK {
		s.SuccessCount++
	} else {
		s.FailedCount++
	}
	s.Items = append(s.Items, r)
}

// Merge folds another summary into this one
func (s *SyncSummary) Merge(other SyncSummary) {
	s.TotalCount += other.TotalCount
	s.SuccessCount += other.SuccessCount
	s.FailedCount += other.FailedCount
	s.Items = append(s.Items, other.Items...)
}

// FailedItems returns only the failed results
func (s *SyncSummary) FailedItems() []ItemResult {
	var failed []ItemResult
	for _, r := range s.Items {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed
}

// AllSucceeded reports whether every item in the run succeeded
func (s *SyncSummary) AllSucceeded() bool {
	return s.FailedCount == 0
}
