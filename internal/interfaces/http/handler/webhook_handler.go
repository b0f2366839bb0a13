// Package handler implements the webhook HTTP endpoints
package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/persistence"
)

// idempotencyHeader lets a channel supply its own delivery key
const idempotencyHeader = "X-Idempotency-Key"

// WebhookHandler accepts order lifecycle events from the channels and
// applies them to reserved stock exactly once
type WebhookHandler struct {
	store       *persistence.Store
	idempotency shared.IdempotencyStore
	ttl         time.Duration
	maxBody     int64
	log         *zap.Logger
}

// NewWebhookHandler creates the handler
func NewWebhookHandler(store *persistence.Store, idem shared.IdempotencyStore, ttl time.Duration, maxBody int64, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		store:       store,
		idempotency: idem,
		ttl:         ttl,
		maxBody:     maxBody,
		log:         log,
	}
}

type webhookItem struct {
	SKU      string `json:"sku"`
	Qty      int    `json:"qty"`
	Quantity int    `json:"quantity"`
}

func (i webhookItem) qty() int {
	if i.Qty > 0 {
		return i.Qty
	}
	return i.Quantity
}

// orderID accepts the order identifier as either a JSON string or a JSON
// number, since the channels disagree on which one they send
type orderID string

func (o *orderID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*o = orderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*o = orderID(n.String())
	return nil
}

// webhookRequest tolerates both naming conventions the channels use
type webhookRequest struct {
	OrderID   orderID       `json:"order_id"`
	ID        orderID       `json:"id"`
	EventTS   string        `json:"event_ts"`
	CreatedAt string        `json:"created_at"`
	Items     []webhookItem `json:"items"`
	LineItems []webhookItem `json:"line_items"`
}

func (r *webhookRequest) orderRef() string {
	if r.OrderID != "" {
		return string(r.OrderID)
	}
	return string(r.ID)
}

func (r *webhookRequest) items() []webhookItem {
	if len(r.Items) > 0 {
		return r.Items
	}
	return r.LineItems
}

func (r *webhookRequest) receivedAt() time.Time {
	for _, raw := range []string{r.EventTS, r.CreatedAt} {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}

// Handle processes POST /webhooks/:channel/:event_type. Duplicate
// deliveries are acknowledged with 200 and apply nothing; only malformed
// or unsupported requests get a 400.
func (h *WebhookHandler) Handle(c *gin.Context) {
	ch, err := channel.Parse(c.Param("channel"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported channel %q", c.Param("channel"))})
		return
	}
	eventType, err := channel.ParseEventType(c.Param("event_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported event type %q", c.Param("event_type"))})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read request body"})
		return
	}
	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed json body"})
		return
	}
	orderRef := req.orderRef()
	if orderRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	key := c.GetHeader(idempotencyHeader)
	if key == "" {
		key = dedupeKey(ch, eventType, orderRef, body)
	}

	// Read-only fast path. A cache miss is never authoritative; the unique
	// index on the event row decides. The key is cached only after the
	// durable work succeeds, so a failed delivery stays retryable.
	if h.idempotency != nil {
		seen, err := h.idempotency.IsProcessed(c.Request.Context(), key)
		if err != nil {
			h.log.Warn("idempotency fast path unavailable", zap.Error(err))
		} else if seen {
			c.JSON(http.StatusOK, gin.H{
				"status":            "duplicate",
				"channel":           ch,
				"event_type":        eventType,
				"external_order_id": orderRef,
				"idempotency_key":   key,
			})
			return
		}
	}

	event := &channel.OrderEvent{
		ID:         uuid.NewString(),
		Channel:    ch,
		EventType:  eventType,
		OrderRef:   orderRef,
		DedupeKey:  key,
		Payload:    body,
		ReceivedAt: req.receivedAt(),
	}
	for _, it := range req.items() {
		event.Items = append(event.Items, channel.OrderItem{SKU: it.SKU, Qty: it.qty()})
	}

	inserted, err := h.store.RecordOrderEvent(c.Request.Context(), event)
	if err != nil {
		h.log.Error("failed to record order event",
			zap.String("channel", ch.String()),
			zap.String("order_ref", orderRef),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record event", "idempotency_key": key})
		return
	}

	if h.idempotency != nil {
		if _, err := h.idempotency.MarkProcessed(c.Request.Context(), key, h.ttl); err != nil {
			h.log.Warn("cannot cache idempotency key", zap.Error(err))
		}
	}

	if !inserted {
		c.JSON(http.StatusOK, gin.H{
			"status":            "duplicate",
			"channel":           ch,
			"event_type":        eventType,
			"external_order_id": orderRef,
			"idempotency_key":   key,
		})
		return
	}

	h.log.Info("order event applied",
		zap.String("channel", ch.String()),
		zap.String("event_type", eventType.String()),
		zap.String("order_ref", orderRef),
		zap.Int("items", len(event.Items)),
	)
	c.JSON(http.StatusOK, gin.H{
		"status":            "accepted",
		"channel":           ch,
		"event_type":        eventType,
		"external_order_id": orderRef,
		"idempotency_key":   key,
	})
}

// dedupeKey derives the fallback idempotency key from the event identity
// and the canonicalized body, so re-deliveries hash identically regardless
// of key order.
func dedupeKey(ch channel.Channel, eventType channel.EventType, orderRef string, body []byte) string {
	canonical := body
	var parsed any
	if err := json.Unmarshal(body, &parsed); err == nil {
		if b, err := json.Marshal(parsed); err == nil {
			canonical = b
		}
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s:%s", ch, eventType, orderRef, canonical))
	return hex.EncodeToString(sum[:])
}
