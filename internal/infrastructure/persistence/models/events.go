package models

import (
	"time"

	"github.com/ngs/omnihub/internal/domain/channel"
)

// OrderEventModel is the audit record of one accepted webhook event. The
// dedupe key carries a unique index; it is the durable idempotency
// guarantee regardless of any cache fast path.
type OrderEventModel struct {
	ID         string          `gorm:"type:varchar(36);primaryKey"`
	Channel    channel.Channel `gorm:"type:varchar(20);not null;index"`
	EventType  string          `gorm:"type:varchar(40);not null"`
	OrderRef   string          `gorm:"type:varchar(128);not null"`
	DedupeKey  string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Payload    string          `gorm:"type:text"`
	ReceivedAt time.Time       `gorm:"not null;index"`
	Applied    bool            `gorm:"not null;default:false"`
	AppliedAt  *time.Time
}

// TableName returns the table name for GORM
func (OrderEventModel) TableName() string {
	return "order_events"
}

// SyncJobModel is the audit record of one sync run
type SyncJobModel struct {
	ID           string          `gorm:"type:varchar(36);primaryKey"`
	Mode         string          `gorm:"type:varchar(20);not null"`
	Scope        string          `gorm:"type:varchar(20);not null"`
	Channel      channel.Channel `gorm:"type:varchar(20);not null;index"`
	Status       string          `gorm:"type:varchar(20);not null"`
	DryRun       bool            `gorm:"not null;default:false"`
	TotalCount   int             `gorm:"not null;default:0"`
	SuccessCount int             `gorm:"not null;default:0"`
	FailedCount  int             `gorm:"not null;default:0"`
	Error        string          `gorm:"type:text"`
	StartedAt    time.Time       `gorm:"not null;index"`
	FinishedAt   *time.Time
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// Sync job statuses
const (
	JobStatusRunning        = "running"
	JobStatusSuccess        = "success"
	JobStatusPartialFailure = "partial_failure"
	JobStatusFailed         = "failed"
)

// DeadLetterModel holds an item push that exhausted its retries, kept with
// the exact payload and channel response for later replay
type DeadLetterModel struct {
	ID        string          `gorm:"type:varchar(36);primaryKey"`
	Channel   channel.Channel `gorm:"type:varchar(20);not null;index"`
	SKU       string          `gorm:"type:varchar(64);not null;index"`
	Mode      string          `gorm:"type:varchar(20);not null"`
	Payload   string          `gorm:"type:text"`
	Response  string          `gorm:"type:text"`
	Reason    string          `gorm:"type:varchar(255)"`
	Attempts  int             `gorm:"not null;default:0"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime"`
}

// TableName returns the table name for GORM
func (DeadLetterModel) TableName() string {
	return "dead_letters"
}
