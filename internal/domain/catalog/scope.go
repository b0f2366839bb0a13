package catalog

import (
	"fmt"
	"strings"

	"github.com/ngs/omnihub/internal/domain/shared"
)

// Scope is a named, bounded subset of the catalog used to stage rollout.
type Scope string

const (
	// ScopeTop50 is the first rollout batch of 50 curated items
	ScopeTop50 Scope = "top50"
	// ScopeTop100 is the 100-item batch
	ScopeTop100 Scope = "top100"
	// ScopeTop200 is the 200-item batch
	ScopeTop200 Scope = "top200"
	// ScopeActive selects whatever is already listed on a channel.
	// It is never bulk-loaded from a source file; it exists for
	// reconciliation runs against live listings.
	ScopeActive Scope = "active"
)

// IsValid returns true if the scope is one of the supported values
func (s Scope) IsValid() bool {
	switch s {
	case ScopeTop50, ScopeTop100, ScopeTop200, ScopeActive:
		return true
	default:
		return false
	}
}

// String returns the string representation of the scope
func (s Scope) String() string {
	return string(s)
}

// NominalSize returns the expected row count for a CSV-backed scope,
// and 0 for the active scope.
func (s Scope) NominalSize() int {
	switch s {
	case ScopeTop50:
		return 50
	case ScopeTop100:
		return 100
	case ScopeTop200:
		return 200
	default:
		return 0
	}
}

// Loadable returns true if the scope can be bulk-loaded from a source file
func (s Scope) Loadable() bool {
	return s != ScopeActive && s.IsValid()
}

// ParseScope parses a raw scope name, failing with a configuration error
// for anything outside the fixed set.
func ParseScope(raw string) (Scope, error) {
	s := Scope(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unsupported scope %q", shared.ErrConfig, raw)
	}
	return s, nil
}
