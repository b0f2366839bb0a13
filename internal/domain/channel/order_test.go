package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumItemQuantities(t *testing.T) {
	tests := []struct {
		name  string
		event OrderEvent
		want  map[string]int
	}{
		{
			name: "duplicate skus fold into one delta",
			event: OrderEvent{
				EventType: EventOrders,
				Items: []OrderItem{
					{SKU: "NGS-001", Qty: 2},
					{SKU: "NGS-001", Qty: 3},
					{SKU: "NGS-002", Qty: 1},
				},
			},
			want: map[string]int{"NGS-001": 5, "NGS-002": 1},
		},
		{
			name: "cancellations release",
			event: OrderEvent{
				EventType: EventCancellations,
				Items:     []OrderItem{{SKU: "NGS-001", Qty: 4}},
			},
			want: map[string]int{"NGS-001": -4},
		},
		{
			name: "returns release",
			event: OrderEvent{
				EventType: EventReturns,
				Items:     []OrderItem{{SKU: "NGS-001", Qty: 1}},
			},
			want: map[string]int{"NGS-001": -1},
		},
		{
			name: "empty sku and non-positive qty skipped",
			event: OrderEvent{
				EventType: EventOrders,
				Items: []OrderItem{
					{SKU: "", Qty: 2},
					{SKU: "NGS-001", Qty: 0},
					{SKU: "NGS-001", Qty: -3},
				},
			},
			want: map[string]int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.SumItemQuantities())
		})
	}
}

func TestParseEventType(t *testing.T) {
	for _, raw := range []string{"orders", "cancellations", "returns"} {
		e, err := ParseEventType(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, e.String())
	}

	_, err := ParseEventType("refunds")
	require.Error(t, err)
}

func TestSyncSummaryMerge(t *testing.T) {
	var a SyncSummary
	a.Add(ItemResult{SKU: "NGS-001", OK: true})
	a.Add(ItemResult{SKU: "NGS-002", Error: "http 500"})

	var b SyncSummary
	b.Add(ItemResult{SKU: "NGS-003", OK: true})

	a.Merge(b)
	assert.Equal(t, 3, a.TotalCount)
	assert.Equal(t, 2, a.SuccessCount)
	assert.Equal(t, 1, a.FailedCount)
	assert.False(t, a.AllSucceeded())
	require.Len(t, a.FailedItems(), 1)
	assert.Equal(t, "NGS-002", a.FailedItems()[0].SKU)
}
