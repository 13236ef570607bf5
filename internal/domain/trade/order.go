package trade

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

// Order field names, in order of preference.
var (
	OrderIDKeys        = []string{"order_id", "orderId", "id"}
	OrderCreatedAtKeys = []string{"created_at", "createdAt", "date"}
	OrderStatusKey     = "status"
	OrderItemsKey      = "items"
	// OrderTotalKeys lists the authoritative aggregate first and the legacy name second.
	OrderTotalKeys = []string{"total_amount", "total"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// OrderRecord is a reconciled historical order.
type OrderRecord struct {
	OrderID   string          `json:"order_id"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Items     []DisplayLine   `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status,omitempty"`
}

// ReconcileOrder reconciles one raw order.
//
// The total is taken from the order itself and never recomputed from lines, so
// a historical order keeps the price charged at checkout even after catalog
// prices change.
func ReconcileOrder(raw valueobject.Fields, index catalog.Index) shared.Result[OrderRecord] {
	var reasons []error

	rawLines, err := ParseItems(raw[OrderItemsKey])
	if err != nil {
		reasons = append(reasons, err)
	}
	items := make([]DisplayLine, 0, len(rawLines))
	for _, rl := range rawLines {
		items = append(items, ReconcileLine(rl, index))
	}

	record := OrderRecord{Items: items, Total: decimal.Zero}
	if id, ok := raw.FirstIdentifier(OrderIDKeys...); ok {
		record.OrderID = id
	}
	if status, ok := valueobject.Text(raw[OrderStatusKey]); ok {
		record.Status = status
	}
	if v, _, ok := raw.Lookup(OrderCreatedAtKeys...); ok {
		record.CreatedAt = parseTimestamp(v)
	}

	total, found := resolveOrderTotal(raw)
	record.Total = total
	if !found {
		if _, key, present := raw.Lookup(OrderTotalKeys...); present {
			reasons = append(reasons, fmt.Errorf("%w: order total %q is not numeric", shared.ErrMalformedPayload, key))
		}
	}

	if len(reasons) > 0 {
		return shared.Degraded(record, reasons...)
	}
	return shared.Ok(record)
}

// resolveOrderTotal walks OrderTotalKeys; unparseable values fall through.
func resolveOrderTotal(raw valueobject.Fields) (decimal.Decimal, bool) {
	for _, key := range OrderTotalKeys {
		if d, ok := valueobject.NonNegativeDecimal(raw[key]); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

// ReconcileOrders reconciles an order history, preserving its order.
// The result is degraded when any single order is.
func ReconcileOrders(raws []valueobject.Fields, index catalog.Index) shared.Result[[]OrderRecord] {
	orders := make([]OrderRecord, 0, len(raws))
	var reasons []error
	for _, raw := range raws {
		res := ReconcileOrder(raw, index)
		orders = append(orders, res.Value)
		reasons = append(reasons, res.Reasons...)
	}
	if len(reasons) > 0 {
		return shared.Degraded(orders, reasons...)
	}
	return shared.Ok(orders)
}

func parseTimestamp(v any) *time.Time {
	if s, ok := valueobject.Text(v); ok {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	if _, isString := v.(string); isString {
		return nil
	}
	if secs, ok := valueobject.Decimal(v); ok && secs.IsPositive() {
		t := time.Unix(secs.IntPart(), 0).UTC()
		return &t
	}
	return nil
}
