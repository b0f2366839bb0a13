package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/ngs/omnihub/internal/domain/shared"
)

// Common connector errors
var (
	// ErrNotConfigured indicates the connector is missing required credentials
	ErrNotConfigured = errors.New("channel: connector not configured")
	// ErrUnsupportedMode indicates the connector cannot run the requested sync mode
	ErrUnsupportedMode = errors.New("channel: sync mode not supported by connector")
)

// SyncMode selects which slice of item state a run pushes to a channel
type SyncMode string

const (
	// ModeCatalog pushes full product content, price and stock
	ModeCatalog SyncMode = "catalog"
	// ModeInventory pushes sellable quantity only
	ModeInventory SyncMode = "inventory"
	// ModePricing pushes the computed channel price only
	ModePricing SyncMode = "pricing"
	// ModeReconcile runs inventory then pricing in one pass
	ModeReconcile SyncMode = "reconcile"
)

// IsValid returns true if the mode is one of the supported values
func (m SyncMode) IsValid() bool {
	switch m {
	case ModeCatalog, ModeInventory, ModePricing, ModeReconcile:
		return true
	default:
		return false
	}
}

// String returns the string representation of the mode
func (m SyncMode) String() string {
	return string(m)
}

// ParseSyncMode parses a raw sync mode, failing with a configuration error
// for anything outside the fixed set.
func ParseSyncMode(raw string) (SyncMode, error) {
	m := SyncMode(raw)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unsupported sync mode %q", shared.ErrConfig, raw)
	}
	return m, nil
}

// Connector is the port every channel adapter implements. Push processes
// the batch item by item: one item's failure is recorded in the summary and
// never aborts the rest of the batch. A connector constructed in dry-run
// mode renders payloads and performs no network calls.
type Connector interface {
	// Name returns the channel this connector serves
	Name() Channel

	// Push sends the items to the channel in the given mode and returns a
	// per-item summary. The returned error is reserved for failures that
	// invalidate the whole run, such as a missing credential.
	Push(ctx context.Context, mode SyncMode, items []ItemPayload) (SyncSummary, error)

	// Ping verifies connectivity and credentials without mutating anything
	Ping(ctx context.Context) error
}
