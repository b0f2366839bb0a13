package channel

import (
	"fmt"
	"strings"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/shared"
)

// Wave binds a rollout stage to a catalog scope and the subset of channels
// live for that stage. The table is explicit so that an invalid
// stage/channel combination cannot be produced by string manipulation.
type Wave struct {
	Name     string
	Scope    catalog.Scope
	Channels []Channel
}

var waves = map[string]Wave{
	"wave50":  {Name: "wave50", Scope: catalog.ScopeTop50, Channels: []Channel{ChannelWoo, ChannelZid}},
	"wave100": {Name: "wave100", Scope: catalog.ScopeTop100, Channels: []Channel{ChannelWoo, ChannelZid, ChannelSalla}},
	"wave200": {Name: "wave200", Scope: catalog.ScopeTop200, Channels: []Channel{ChannelWoo, ChannelZid, ChannelSalla, ChannelShopify}},
}

// LookupWave returns the wave definition for a stage name
func LookupWave(name string) (Wave, bool) {
	w, ok := waves[strings.ToLower(strings.TrimSpace(name))]
	return w, ok
}

// ResolveStage maps a stage-or-scope name to the concrete scope and the
// channels live for it. A wave name resolves through the wave table; a raw
// scope name resolves to itself with the first-wave channel set. Anything
// else is a configuration error.
func ResolveStage(raw string) (catalog.Scope, []Channel, error) {
	if w, ok := LookupWave(raw); ok {
		return w.Scope, w.Channels, nil
	}
	scope, err := catalog.ParseScope(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: unsupported stage or scope %q", shared.ErrConfig, raw)
	}
	return scope, []Channel{ChannelWoo, ChannelZid}, nil
}
