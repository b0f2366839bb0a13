package channel

import (
	"fmt"
	"strings"

	"github.com/ngs/omnihub/internal/domain/shared"
)

// Channel identifies one of the four supported sales channels. The set is
// fixed; adding a marketplace means adding a connector variant, not a
// plugin.
type Channel string

const (
	// ChannelWoo is the WooCommerce storefront
	ChannelWoo Channel = "woo"
	// ChannelZid is the Zid marketplace
	ChannelZid Channel = "zid"
	// ChannelSalla is the Salla marketplace
	ChannelSalla Channel = "salla"
	// ChannelShopify is the Shopify storefront
	ChannelShopify Channel = "shopify"
)

// All returns the supported channels in stable order
func All() []Channel {
	return []Channel{ChannelWoo, ChannelZid, ChannelSalla, ChannelShopify}
}

// IsValid returns true if the channel is one of the supported values
func (c Channel) IsValid() bool {
	switch c {
	case ChannelWoo, ChannelZid, ChannelSalla, ChannelShopify:
		return true
	default:
		return false
	}
}

// String returns the string representation of the channel
func (c Channel) String() string {
	return string(c)
}

// Parse parses a raw channel name, failing with a configuration error for
// anything outside the fixed set.
func Parse(raw string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: unsupported channel %q", shared.ErrConfig, raw)
	}
	return c, nil
}
