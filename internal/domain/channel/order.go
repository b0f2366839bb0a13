package channel

import (
	"fmt"
	"time"

	"github.com/ngs/omnihub/internal/domain/shared"
)

// EventType is the kind of order lifecycle event a channel can deliver
type EventType string

const (
	// EventOrders reserves stock for a newly placed order
	EventOrders EventType = "orders"
	// EventCancellations releases stock reserved by a cancelled order
	EventCancellations EventType = "cancellations"
	// EventReturns releases stock for a returned order
	EventReturns EventType = "returns"
)

// IsValid returns true if the event type is one of the supported values
func (e EventType) IsValid() bool {
	switch e {
	case EventOrders, EventCancellations, EventReturns:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// QtySign returns the direction the event moves reserved stock: +1
// reserves, -1 releases.
func (e EventType) QtySign() int {
	if e == EventOrders {
		return 1
	}
	return -1
}

// ParseEventType parses a raw event type, failing with an invalid-input
// error for anything outside the fixed set.
func ParseEventType(raw string) (EventType, error) {
	e := EventType(raw)
	if !e.IsValid() {
		return "", fmt.Errorf("%w: unsupported event type %q", shared.ErrInvalidInput, raw)
	}
	return e, nil
}

// OrderItem is one line of an order event
type OrderItem struct {
	SKU string
	Qty int
}

// OrderEvent is an accepted webhook event, keyed for deduplication.
// DedupeKey is either the caller-supplied idempotency key or a hash
// derived from the event identity.
type OrderEvent struct {
	ID         string
	Channel    Channel
	EventType  EventType
	OrderRef   string
	DedupeKey  string
	Payload    []byte
	Items      []OrderItem
	ReceivedAt time.Time
}

// SumItemQuantities folds duplicate SKUs within one event into a single
// signed delta per SKU, applying the event's direction.
func (e *OrderEvent) SumItemQuantities() map[string]int {
	sign := e.EventType.QtySign()
	deltas := make(map[string]int, len(e.Items))
	for _, it := range e.Items {
		if it.SKU == "" || it.Qty <= 0 {
			continue
		}
		deltas[it.SKU] += sign * it.Qty
	}
	return deltas
}
