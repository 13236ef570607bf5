package trade

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

func TestReconcileOrder_TotalIsNotRecomputed(t *testing.T) {
	raw := valueobject.Fields{
		"order_id":     json.Number("101"),
		"total_amount": "42.00",
		"items":        `[{"itemId":7,"quantity":1,"price":"10.50"}]`,
		"status":       "completed",
		"created_at":   "2024-03-01T10:00:00Z",
	}

	res := ReconcileOrder(raw, widgetIndex())

	require.True(t, res.IsOK())
	order := res.Value
	assert.Equal(t, "101", order.OrderID)
	assert.True(t, decimal.NewFromInt(42).Equal(order.Total))
	assert.Equal(t, "completed", order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Widget", order.Items[0].Caption)
	require.NotNil(t, order.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), *order.CreatedAt)
}

func TestReconcileOrder_TotalFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		raw      valueobject.Fields
		want     string
		degraded bool
	}{
		{name: "total_amount", raw: valueobject.Fields{"total_amount": json.Number("12.5"), "total": "99"}, want: "12.5"},
		{name: "legacy total", raw: valueobject.Fields{"total": "7.25"}, want: "7.25"},
		{name: "unparseable total_amount falls through", raw: valueobject.Fields{"total_amount": "n/a", "total": 3}, want: "3"},
		{name: "neither present", raw: valueobject.Fields{}, want: "0"},
		{name: "present but garbage", raw: valueobject.Fields{"total_amount": "n/a"}, want: "0", degraded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ReconcileOrder(tt.raw, catalog.EmptyIndex())
			assert.Equal(t, tt.want, res.Value.Total.String())
			assert.Equal(t, tt.degraded, res.IsDegraded())
		})
	}
}

func TestReconcileOrder_Identifiers(t *testing.T) {
	assert.Equal(t, "a", ReconcileOrder(valueobject.Fields{"order_id": "a", "id": "c"}, catalog.EmptyIndex()).Value.OrderID)
	assert.Equal(t, "b", ReconcileOrder(valueobject.Fields{"orderId": "b", "id": "c"}, catalog.EmptyIndex()).Value.OrderID)
	assert.Equal(t, "c", ReconcileOrder(valueobject.Fields{"id": "c"}, catalog.EmptyIndex()).Value.OrderID)
	assert.Equal(t, "3", ReconcileOrder(valueobject.Fields{"id": json.Number("3")}, catalog.EmptyIndex()).Value.OrderID)
}

func TestReconcileOrder_CreatedAt(t *testing.T) {
	tests := []struct {
		name string
		raw  valueobject.Fields
		want *time.Time
	}{
		{name: "rfc3339", raw: valueobject.Fields{"created_at": "2024-01-02T03:04:05+02:00"}, want: ptrTime(time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC))},
		{name: "naive iso", raw: valueobject.Fields{"createdAt": "2024-01-02T03:04:05.123456"}, want: ptrTime(time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC))},
		{name: "date only", raw: valueobject.Fields{"date": "2024-01-02"}, want: ptrTime(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))},
		{name: "unix seconds", raw: valueobject.Fields{"created_at": json.Number("1700000000")}, want: ptrTime(time.Unix(1700000000, 0).UTC())},
		{name: "garbage string", raw: valueobject.Fields{"created_at": "yesterday"}},
		{name: "numeric string is not a timestamp", raw: valueobject.Fields{"created_at": "1700000000"}},
		{name: "absent", raw: valueobject.Fields{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileOrder(tt.raw, catalog.EmptyIndex()).Value.CreatedAt
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestReconcileOrder_MalformedItems(t *testing.T) {
	res := ReconcileOrder(valueobject.Fields{"order_id": "1", "items": "not json", "total": "5"}, catalog.EmptyIndex())
	assert.True(t, res.IsDegraded())
	assert.True(t, res.HasReason(shared.ErrMalformedPayload))
	assert.Empty(t, res.Value.Items)
	assert.Equal(t, "5", res.Value.Total.String())
}

func TestReconcileOrders_PreservesOrderAndAggregatesDegradation(t *testing.T) {
	raws := []valueobject.Fields{
		{"order_id": "2", "total": "1"},
		{"order_id": "1", "items": 17},
		{"order_id": "3"},
	}

	res := ReconcileOrders(raws, catalog.EmptyIndex())

	assert.True(t, res.IsDegraded())
	require.Len(t, res.Value, 3)
	assert.Equal(t, "2", res.Value[0].OrderID)
	assert.Equal(t, "1", res.Value[1].OrderID)
	assert.Equal(t, "3", res.Value[2].OrderID)

	empty := ReconcileOrders(nil, catalog.EmptyIndex())
	assert.True(t, empty.IsOK())
	assert.NotNil(t, empty.Value)
	assert.Empty(t, empty.Value)
}

func ptrTime(t time.Time) *time.Time { return &t }
