package connector

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/infrastructure/config"
)

func TestZidFallsBackToCSVWithoutToken(t *testing.T) {
	dir := t.TempDir()
	conn, err := NewZidConnector(config.ZidConfig{ExportDir: dir}, fastOptions())
	require.NoError(t, err)

	items := []channel.ItemPayload{testItem("NGS-001"), testItem("NGS-002")}
	summary, err := conn.Push(context.Background(), channel.ModeCatalog, items)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalCount)
	assert.Equal(t, 2, summary.SuccessCount)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "zid-catalog-")

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 items
	assert.Equal(t, zidCSVHeader, records[0])
	assert.Equal(t, "NGS-001", records[1][0])
	assert.Equal(t, "Sidr Honey", records[1][2])
}

func TestZidRejectsReconcileMode(t *testing.T) {
	conn, err := NewZidConnector(config.ZidConfig{ExportDir: t.TempDir()}, fastOptions())
	require.NoError(t, err)

	_, err = conn.Push(context.Background(), channel.ModeReconcile, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, channel.ErrUnsupportedMode)
}

func TestZidDryRunWritesNoFiles(t *testing.T) {
	dir := t.TempDir()
	opts := fastOptions()
	opts.DryRun = true
	conn, err := NewZidConnector(config.ZidConfig{ExportDir: dir}, opts)
	require.NoError(t, err)

	summary, err := conn.Push(context.Background(), channel.ModePricing, []channel.ItemPayload{testItem("NGS-001")})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuccessCount)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
