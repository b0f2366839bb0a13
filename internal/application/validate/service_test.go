package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/infrastructure/persistence"
)

func newTestStore(t *testing.T) *persistence.Store {
	t.Helper()
	db, err := persistence.NewInMemoryDatabase()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := persistence.NewStore(db, zap.NewNop())
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func loadCSV(t *testing.T, store *persistence.Store, rows string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "top50.csv")
	content := "SKU,Name,Description,Regular price,Meta: _margin,Meta: _cost,Stock,Images,Published,Brands,Categories,Weight (kg),Barcode\n" + rows
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	_, err := store.LoadProductsFromCSV(context.Background(), catalog.ScopeTop50, path)
	require.NoError(t, err)
}

func findingCodes(r *Report) []string {
	codes := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		codes = append(codes, f.Code)
	}
	return codes
}

func TestValidateEmptyScopeFails(t *testing.T) {
	store := newTestStore(t)
	service := NewService(store, zap.NewNop())

	report, err := service.Validate(context.Background(), "wave50", Options{})
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Contains(t, findingCodes(report), CodeScopeEmpty)
}

func TestValidateUnknownStage(t *testing.T) {
	store := newTestStore(t)
	service := NewService(store, zap.NewNop())

	_, err := service.Validate(context.Background(), "wave999", Options{})
	require.Error(t, err)
}

func TestValidateMissingNamesAndRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	// single-valued names fill both slots, an empty name fills neither
	loadCSV(t, store, "NGS-001,,desc,149,25,,40,,1,NGS,Honey,0.5,\n")

	service := NewService(store, zap.NewNop())
	report, err := service.Validate(ctx, "wave50", Options{})
	require.NoError(t, err)
	assert.True(t, report.Failed())

	codes := findingCodes(report)
	assert.Contains(t, codes, CodeMissingNames)
	// no seed ran, so woo and zid both lack a price rule
	assert.Contains(t, codes, CodeMissingPriceRule)
}

func TestValidateHealthyWavePasses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.SeedPriceRules(ctx)
	require.NoError(t, err)
	loadCSV(t, store,
		"NGS-001,عسل | Honey,,149,25,,40,,1,NGS,Honey,0.5,\n"+
			"NGS-002,زيت | Oil,,59,30,40,10,,1,NGS,Oils,,\n")
	for _, ch := range []channel.Channel{channel.ChannelWoo, channel.ChannelZid} {
		_, err := store.ConfirmCategoryMappings(ctx, ch, nil)
		require.NoError(t, err)
	}

	service := NewService(store, zap.NewNop())
	report, err := service.Validate(ctx, "wave50", Options{})
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Equal(t, catalog.ScopeTop50, report.Scope)
	assert.Equal(t, []channel.Channel{channel.ChannelWoo, channel.ChannelZid}, report.Channels)

	// no sync has run yet: warnings only, never a gate failure
	codes := findingCodes(report)
	assert.Contains(t, codes, CodeSyncLagMissing)
	for _, f := range report.Findings {
		assert.Equal(t, SeverityWarning, f.Severity)
	}
}

func TestValidateUnconfirmedCategoryMapFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.SeedPriceRules(ctx)
	require.NoError(t, err)
	loadCSV(t, store, "NGS-001,عسل | Honey,,149,25,,40,,1,NGS,Honey,0.5,\n")

	// loading seeds placeholder mappings; without operator confirmation
	// they must not satisfy the gate
	service := NewService(store, zap.NewNop())
	report, err := service.Validate(ctx, "wave50", Options{})
	require.NoError(t, err)
	assert.True(t, report.Failed())

	var found *Finding
	for i := range report.Findings {
		if report.Findings[i].Code == CodeMissingCategoryMap {
			found = &report.Findings[i]
			break
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, SeverityCritical, found.Severity)
	assert.Equal(t, []string{"honey"}, found.Subjects)

	_, err = store.ConfirmCategoryMappings(ctx, channel.ChannelWoo, nil)
	require.NoError(t, err)
	_, err = store.ConfirmCategoryMappings(ctx, channel.ChannelZid, nil)
	require.NoError(t, err)

	report, err = service.Validate(ctx, "wave50", Options{})
	require.NoError(t, err)
	assert.NotContains(t, findingCodes(report), CodeMissingCategoryMap)
}

func TestValidateDuplicateSKUsInSourceExport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.SeedPriceRules(ctx)
	require.NoError(t, err)
	loadCSV(t, store, "NGS-001,عسل | Honey,,149,25,,40,,1,NGS,Honey,0.5,\n")

	dupPath := filepath.Join(t.TempDir(), "dup.csv")
	content := "SKU,Name\nNGS-001,a\nNGS-001,b\nNGS-002,c\n"
	require.NoError(t, os.WriteFile(dupPath, []byte(content), 0644))

	service := NewService(store, zap.NewNop())
	report, err := service.Validate(ctx, "wave50", Options{CSVPath: dupPath})
	require.NoError(t, err)
	assert.True(t, report.Failed())

	var found *Finding
	for i := range report.Findings {
		if report.Findings[i].Code == CodeSKUDuplicate {
			found = &report.Findings[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, []string{"NGS-001"}, found.Subjects)
}
