package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ngs/omnihub/internal/domain/channel"
)

// ChannelPriceRuleModel is the persistence model for per-channel price
// rules. Exactly one row exists per channel; rows are seeded by migrate.
type ChannelPriceRuleModel struct {
	Channel      channel.Channel   `gorm:"type:varchar(20);primaryKey"`
	FeePct       decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentPct   decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	OpsBufferSAR decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	RoundRule    channel.RoundRule `gorm:"type:varchar(20);not null;default:'nearest_9'"`
	Active       bool              `gorm:"not null;default:true"`
	UpdatedAt    time.Time         `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ChannelPriceRuleModel) TableName() string {
	return "channel_price_rules"
}

// ToDomain converts the persistence model to a domain PriceRule
func (m *ChannelPriceRuleModel) ToDomain() channel.PriceRule {
	return channel.PriceRule{
		Channel:      m.Channel,
		FeePct:       m.FeePct,
		PaymentPct:   m.PaymentPct,
		OpsBufferSAR: m.OpsBufferSAR,
		RoundRule:    m.RoundRule,
		Active:       m.Active,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ChannelCategoryMapModel maps an internal category key to a channel's own
// category naming. Seeded rows start unconfirmed; an operator confirms a
// mapping after reviewing the remote category, and only confirmed rows
// satisfy the pre-rollout gate.
type ChannelCategoryMapModel struct {
	ID             string          `gorm:"type:varchar(36);primaryKey"`
	Channel        channel.Channel `gorm:"type:varchar(20);not null;uniqueIndex:idx_catmap_channel_key,priority:1"`
	CategoryKey    string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_catmap_channel_key,priority:2"`
	RemoteCategory string          `gorm:"type:varchar(255);not null"`
	Confirmed      bool            `gorm:"not null;default:false"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ChannelCategoryMapModel) TableName() string {
	return "channel_category_maps"
}

// ChannelListingModel records the last exchange with a channel for one
// SKU, successful or not. The payload hash fingerprints the last
// successful push; the raw payload, response and error columns keep the
// full trace for inspection.
type ChannelListingModel struct {
	ID              string          `gorm:"type:varchar(36);primaryKey"`
	Channel         channel.Channel `gorm:"type:varchar(20);not null;uniqueIndex:idx_listing_channel_sku,priority:1"`
	SKU             string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_listing_channel_sku,priority:2"`
	RemoteID        string          `gorm:"type:varchar(128)"`
	RemoteVariantID string          `gorm:"type:varchar(128)"`
	LastPayloadHash string          `gorm:"type:varchar(64)"`
	LastPayload     string          `gorm:"type:text"`
	LastResponse    string          `gorm:"type:text"`
	LastError       string          `gorm:"type:text"`
	LastPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastQty         int             `gorm:"not null;default:0"`
	LastStatus      string          `gorm:"type:varchar(20)"`
	LastSyncedAt    *time.Time
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ChannelListingModel) TableName() string {
	return "channel_listings"
}
