// Package validate implements the pre-rollout gate: a read-only inspection
// of a wave's data that must pass before pushing the wave live.
package validate

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/infrastructure/persistence"
)

// Severity of a finding. Only critical findings fail the gate; warnings
// inform the operator.
type Severity string

const (
	// SeverityCritical blocks the wave
	SeverityCritical Severity = "critical"
	// SeverityWarning is advisory
	SeverityWarning Severity = "warning"
)

// Finding codes
const (
	CodeSKUDuplicate       = "sku_duplicate"
	CodeScopeEmpty         = "scope_empty"
	CodeMissingNames       = "missing_names"
	CodeMissingCategoryMap = "missing_category_map"
	CodeMissingPriceRule   = "missing_price_rule"
	CodePriceRuleViolation = "price_rule_violation"
	CodeInventoryNegative  = "inventory_negative"
	CodeSyncLagMissing     = "sync_lag_missing"
	CodeSyncLagThreshold   = "sync_lag_threshold"
)

// Finding is one validation observation. Findings are data, not errors: a
// run that produces critical findings still returns successfully.
type Finding struct {
	Severity Severity        `json:"severity"`
	Code     string          `json:"code"`
	Channel  channel.Channel `json:"channel,omitempty"`
	Message  string          `json:"message"`
	Subjects []string        `json:"subjects,omitempty"`
}

// Report is the JSON result of one validation run
type Report struct {
	Stage    string            `json:"stage"`
	Scope    catalog.Scope     `json:"scope"`
	Channels []channel.Channel `json:"channels"`
	Status   string            `json:"status"`
	Findings []Finding         `json:"findings"`
	RanAt    time.Time         `json:"ran_at"`
}

// Failed reports whether the gate blocked the wave
func (r *Report) Failed() bool {
	return r.Status == "fail"
}

// Options tunes one validation run
type Options struct {
	// SampleSize bounds the per-channel price check sample
	SampleSize int
	// LagThreshold is the sync age above which a warning is raised
	LagThreshold time.Duration
	// CSVPath enables the duplicate-SKU check against the scope's source
	// export when set
	CSVPath string
}

func (o Options) withDefaults() Options {
	if o.SampleSize <= 0 {
		o.SampleSize = 30
	}
	if o.LagThreshold <= 0 {
		o.LagThreshold = 15 * time.Minute
	}
	return o
}

// Service runs validation gates against the catalog store
type Service struct {
	store *persistence.Store
	log   *zap.Logger
}

// NewService creates the validator
func NewService(store *persistence.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Validate inspects the stage's scope and channels and returns the gate
// report. The returned error is reserved for infrastructure failures;
// data problems become findings.
func (s *Service) Validate(ctx context.Context, stage string, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	scope, channels, err := channel.ResolveStage(stage)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Stage:    stage,
		Scope:    scope,
		Channels: channels,
		RanAt:    time.Now().UTC(),
	}
	add := func(f Finding) { report.Findings = append(report.Findings, f) }

	products, err := s.store.GetProductsForScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		add(Finding{
			Severity: SeverityCritical,
			Code:     CodeScopeEmpty,
			Message:  fmt.Sprintf("scope %s has no products loaded", scope),
		})
	}

	if opts.CSVPath != "" && scope.Loadable() {
		dupes, err := duplicateSKUsInCSV(opts.CSVPath)
		if err != nil {
			s.log.Warn("cannot check source export for duplicates",
				zap.String("path", opts.CSVPath), zap.Error(err))
		} else if len(dupes) > 0 {
			add(Finding{
				Severity: SeverityCritical,
				Code:     CodeSKUDuplicate,
				Message:  fmt.Sprintf("%d duplicate SKUs in source export", len(dupes)),
				Subjects: dupes,
			})
		}
	}

	missingNames, err := s.store.FindProductsMissingNames(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(missingNames) > 0 {
		add(Finding{
			Severity: SeverityCritical,
			Code:     CodeMissingNames,
			Message:  fmt.Sprintf("%d products lack a bilingual name", len(missingNames)),
			Subjects: missingNames,
		})
	}

	negative, err := s.store.FindNegativeInventories(ctx)
	if err != nil {
		return nil, err
	}
	if len(negative) > 0 {
		add(Finding{
			Severity: SeverityCritical,
			Code:     CodeInventoryNegative,
			Message:  fmt.Sprintf("%d inventory rows hold negative counters", len(negative)),
			Subjects: negative,
		})
	}

	for _, ch := range channels {
		s.validateChannel(ctx, ch, scope, products, opts, add)
	}

	report.Status = "pass"
	for _, f := range report.Findings {
		if f.Severity == SeverityCritical {
			report.Status = "fail"
			break
		}
	}
	return report, nil
}

func (s *Service) validateChannel(ctx context.Context, ch channel.Channel, scope catalog.Scope, products []*catalog.Product, opts Options, add func(Finding)) {
	rule, err := s.store.GetPriceRule(ctx, ch)
	if err != nil {
		add(Finding{
			Severity: SeverityCritical,
			Code:     CodeMissingPriceRule,
			Channel:  ch,
			Message:  fmt.Sprintf("no active price rule for %s", ch),
		})
	}

	unmapped, err := s.store.FindUnmappedCategoryKeys(ctx, ch, scope)
	if err != nil {
		s.log.Warn("cannot check category map", zap.String("channel", ch.String()), zap.Error(err))
	} else if len(unmapped) > 0 {
		add(Finding{
			Severity: SeverityCritical,
			Code:     CodeMissingCategoryMap,
			Channel:  ch,
			Message:  fmt.Sprintf("%d category keys lack a confirmed mapping for %s", len(unmapped), ch),
			Subjects: unmapped,
		})
	}

	if err == nil && rule.Active {
		if violations := s.samplePrices(ctx, products, rule, opts.SampleSize); len(violations) > 0 {
			add(Finding{
				Severity: SeverityCritical,
				Code:     CodePriceRuleViolation,
				Channel:  ch,
				Message:  fmt.Sprintf("%d sampled products violate the %s price rule", len(violations), ch),
				Subjects: violations,
			})
		}
	}

	lag, ok, err := s.store.GetSyncLag(ctx, ch)
	if err != nil {
		s.log.Warn("cannot check sync lag", zap.String("channel", ch.String()), zap.Error(err))
		return
	}
	if !ok {
		add(Finding{
			Severity: SeverityWarning,
			Code:     CodeSyncLagMissing,
			Channel:  ch,
			Message:  fmt.Sprintf("%s has never completed a sync run", ch),
		})
		return
	}
	if lag > opts.LagThreshold {
		add(Finding{
			Severity: SeverityWarning,
			Code:     CodeSyncLagThreshold,
			Channel:  ch,
			Message:  fmt.Sprintf("%s last synced %s ago (threshold %s)", ch, lag.Round(time.Second), opts.LagThreshold),
		})
	}
}

// samplePrices recomputes the channel price for a random product sample and
// returns the SKUs whose computed price breaks the rule's guarantees.
func (s *Service) samplePrices(ctx context.Context, products []*catalog.Product, rule channel.PriceRule, sampleSize int) []string {
	if len(products) == 0 {
		return nil
	}
	sample := products
	if len(sample) > sampleSize {
		idx := rand.Perm(len(sample))[:sampleSize]
		picked := make([]*catalog.Product, 0, sampleSize)
		for _, i := range idx {
			picked = append(picked, sample[i])
		}
		sample = picked
	}

	skus := make([]string, 0, len(sample))
	for _, p := range sample {
		skus = append(skus, p.SKU)
	}
	pricings, err := s.store.GetPricings(ctx, skus)
	if err != nil {
		s.log.Warn("cannot load pricings for sample", zap.Error(err))
		return nil
	}

	var violations []string
	for _, p := range sample {
		pr, ok := pricings[p.SKU]
		if !ok {
			violations = append(violations, p.SKU)
			continue
		}
		price := channel.ComputeChannelPrice(pr.BaseCostSAR, pr.TargetMarginPct, pr.VATIncluded, rule)
		if !priceSatisfiesRule(price, pr.BaseCostSAR, rule) {
			violations = append(violations, p.SKU)
		}
	}
	return violations
}

func priceSatisfiesRule(price, cost decimal.Decimal, rule channel.PriceRule) bool {
	if !price.IsPositive() {
		return false
	}
	if cost.IsPositive() && price.LessThan(cost) {
		return false
	}
	if rule.RoundRule == channel.RoundNearest9 {
		return price.Mod(decimal.NewFromInt(10)).Equal(decimal.NewFromInt(9))
	}
	return true
}

// duplicateSKUsInCSV scans a source export for SKUs that appear twice
func duplicateSKUsInCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	skuCol := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "SKU" {
			skuCol = i
			break
		}
	}
	if skuCol < 0 {
		return nil, fmt.Errorf("no SKU column in %s", path)
	}

	seen := make(map[string]int)
	var dupes []string
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		if skuCol >= len(rec) {
			continue
		}
		sku := strings.TrimSpace(rec[skuCol])
		if sku == "" {
			continue
		}
		seen[sku]++
		if seen[sku] == 2 {
			dupes = append(dupes, sku)
		}
	}
	return dupes, nil
}
