package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/shared"
)

func TestResolveStage(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantScope    catalog.Scope
		wantChannels []Channel
		wantErr      bool
	}{
		{
			name:         "wave50",
			raw:          "wave50",
			wantScope:    catalog.ScopeTop50,
			wantChannels: []Channel{ChannelWoo, ChannelZid},
		},
		{
			name:         "wave100 adds salla",
			raw:          "wave100",
			wantScope:    catalog.ScopeTop100,
			wantChannels: []Channel{ChannelWoo, ChannelZid, ChannelSalla},
		},
		{
			name:         "wave200 is all channels",
			raw:          "wave200",
			wantScope:    catalog.ScopeTop200,
			wantChannels: All(),
		},
		{
			name:         "bare scope defaults to first wave channels",
			raw:          "top100",
			wantScope:    catalog.ScopeTop100,
			wantChannels: []Channel{ChannelWoo, ChannelZid},
		},
		{
			name:    "unknown stage",
			raw:     "wave500",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, channels, err := ResolveStage(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, shared.ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScope, scope)
			assert.Equal(t, tt.wantChannels, channels)
		})
	}
}

func TestParseChannel(t *testing.T) {
	c, err := Parse(" Woo ")
	require.NoError(t, err)
	assert.Equal(t, ChannelWoo, c)

	_, err = Parse("amazon")
	assert.ErrorIs(t, err, shared.ErrConfig)
}

func TestDefaultPriceRulesCoverAllChannels(t *testing.T) {
	rules := DefaultPriceRules()
	seen := make(map[Channel]bool)
	for _, r := range rules {
		assert.True(t, r.Active)
		assert.Equal(t, RoundNearest9, r.RoundRule)
		seen[r.Channel] = true
	}
	for _, c := range All() {
		assert.True(t, seen[c], "missing rule for %s", c)
	}
}
