package connector

import (
	"fmt"

	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/config"
)

// New builds the connector for a channel from the hub configuration
func New(ch channel.Channel, cfg *config.Config, opts Options) (channel.Connector, error) {
	switch ch {
	case channel.ChannelWoo:
		return NewWooConnector(cfg.Woo, opts)
	case channel.ChannelZid:
		return NewZidConnector(cfg.Zid, opts)
	case channel.ChannelSalla:
		return NewSallaConnector(cfg.Salla, opts)
	case channel.ChannelShopify:
		return NewShopifyConnector(cfg.Shopify, opts)
	default:
		return nil, fmt.Errorf("%w: no connector for channel %q", shared.ErrConfig, ch)
	}
}
