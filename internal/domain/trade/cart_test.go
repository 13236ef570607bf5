package trade

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/shared"
)

func TestReconcileCart_WidgetFromJSONString(t *testing.T) {
	raw := RawCart{UserID: "u-1", Items: `[{"itemId":7,"quantity":2,"price":"10.50"}]`}

	res := ReconcileCart(raw, widgetIndex())

	require.True(t, res.IsOK())
	cart := res.Value
	require.Len(t, cart.Lines, 1)
	line := cart.Lines[0]
	assert.Equal(t, "7", line.ItemID)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, decimal.RequireFromString("10.50").Equal(line.UnitPrice))
	assert.Equal(t, "Widget", line.Caption)
	assert.True(t, decimal.RequireFromString("21.00").Equal(line.LineTotal))
	assert.True(t, decimal.RequireFromString("21.00").Equal(cart.Total))
}

func TestReconcileCart_EmptyIndexFallsBackToIdentifier(t *testing.T) {
	raw := RawCart{UserID: "u-1", Items: `[{"itemId":7,"quantity":2,"price":"10.50"}]`}

	res := ReconcileCart(raw, catalog.EmptyIndex())

	require.True(t, res.IsOK())
	require.Len(t, res.Value.Lines, 1)
	assert.Equal(t, "Item #7", res.Value.Lines[0].Caption)
	assert.True(t, decimal.RequireFromString("21.00").Equal(res.Value.Total))
}

func TestReconcileCart_StringAndArrayEncodingsMatch(t *testing.T) {
	asString := `[{"itemId":7,"quantity":2,"price":"10.50"},{"item_id":"8","quantity":"1","price":3,"description":"Pen"}]`
	asArray, err := ParseItems(asString)
	require.NoError(t, err)

	native := make([]any, 0, len(asArray))
	for _, l := range asArray {
		native = append(native, map[string]any(l))
	}

	fromString := ReconcileCart(RawCart{Items: asString}, widgetIndex())
	fromArray := ReconcileCart(RawCart{Items: native}, widgetIndex())

	assert.Equal(t, fromString.Value.Lines, fromArray.Value.Lines)
	assert.True(t, fromString.Value.Total.Equal(fromArray.Value.Total))
}

func TestReconcileCart_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		items any
	}{
		{name: "invalid json string", items: `[{"itemId":7`},
		{name: "json object string", items: `{"itemId":7}`},
		{name: "blank string", items: "  "},
		{name: "number", items: 42},
		{name: "object", items: map[string]any{"itemId": "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ReconcileCart(RawCart{UserID: "u-1", Items: tt.items}, widgetIndex())
			assert.True(t, res.IsDegraded())
			assert.True(t, res.HasReason(shared.ErrMalformedPayload))
			assert.NoError(t, res.Err())
			assert.True(t, res.Value.IsEmpty())
			assert.True(t, res.Value.Total.IsZero())
		})
	}
}

func TestReconcileCart_DropsNonObjectEntries(t *testing.T) {
	res := ReconcileCart(RawCart{Items: `[1, {"itemId":7,"quantity":1}, "x"]`}, widgetIndex())
	assert.True(t, res.IsDegraded())
	require.Len(t, res.Value.Lines, 1)
	assert.Equal(t, "Widget", res.Value.Lines[0].Caption)
	assert.Equal(t, "10.5", res.Value.Total.String())
}

func TestReconcileCart_NilItemsIsEmptyNotDegraded(t *testing.T) {
	res := ReconcileCart(RawCart{UserID: "u-1"}, catalog.EmptyIndex())
	assert.True(t, res.IsOK())
	assert.True(t, res.Value.IsEmpty())
	assert.NotNil(t, res.Value.Lines)
	assert.True(t, res.Value.Total.IsZero())
}

func TestReconcileCart_PreservesOrder(t *testing.T) {
	res := ReconcileCart(RawCart{Items: `[{"itemId":"c"},{"itemId":"a"},{"itemId":"b"}]`}, catalog.EmptyIndex())
	require.Len(t, res.Value.Lines, 3)
	assert.Equal(t, "c", res.Value.Lines[0].ItemID)
	assert.Equal(t, "a", res.Value.Lines[1].ItemID)
	assert.Equal(t, "b", res.Value.Lines[2].ItemID)
}

func TestCart_WithoutAndRestore(t *testing.T) {
	cart := NewCart("u-1", []DisplayLine{
		NewDisplayLine("a", 1, decimal.NewFromInt(1), "A"),
		NewDisplayLine("x", 2, decimal.NewFromInt(5), "X"),
		NewDisplayLine("b", 1, decimal.NewFromInt(2), "B"),
		NewDisplayLine("x", 1, decimal.NewFromInt(5), "X"),
	})
	require.Equal(t, "18", cart.Total.String())

	without, removed := cart.Without("x")
	assert.Len(t, without.Lines, 2)
	assert.Equal(t, "3", without.Total.String())
	assert.False(t, without.Contains("x"))
	require.Len(t, removed, 2)
	assert.Equal(t, 1, removed[0].Index)
	assert.Equal(t, 3, removed[1].Index)

	restored := without.Restore(removed)
	assert.Equal(t, cart.Lines, restored.Lines)
	assert.True(t, cart.Total.Equal(restored.Total))

	unchanged, none := cart.Without("missing")
	assert.Empty(t, none)
	assert.Equal(t, cart.Lines, unchanged.Lines)
}
