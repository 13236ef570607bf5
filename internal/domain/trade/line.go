// Package trade reconciles raw cart and order payloads with the catalog index
// into display-ready carts and order records.
package trade

import (
	"github.com/shopspring/decimal"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

// Field name variants accepted on cart and order lines, in order of preference.
var (
	LineIdentifierKeys = []string{"itemId", "item_id", "id", "book_id"}
	LineCaptionKeys    = []string{"description", "caption"}
	LineQuantityKey    = "quantity"
	LinePriceKey       = "price"
)

// unknownItemID stands in for the identifier of a line that carries none.
const unknownItemID = "unknown"

// DisplayLine is a reconciled, display-ready cart or order line.
type DisplayLine struct {
	ItemID    string          `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Caption   string          `json:"caption"`
	LineTotal decimal.Decimal `json:"line_total"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// NewDisplayLine builds a line and computes its total.
func NewDisplayLine(itemID string, quantity int, unitPrice decimal.Decimal, caption string) DisplayLine {
	if quantity < 1 {
		quantity = 1
	}
	if unitPrice.IsNegative() {
		unitPrice = decimal.Zero
	}
	if caption == "" {
		caption = catalog.FallbackCaption(itemID)
	}
	return DisplayLine{
		ItemID:    itemID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Caption:   caption,
		LineTotal: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// ReconcileLine merges one raw cart or order line with the catalog index.
//
// Caption precedence is index, then the line's own description or caption, then
// the identifier fallback: the catalog holds fresher text than a stored snapshot.
// Price precedence is the line's own price, then the index, then zero.
func ReconcileLine(raw valueobject.Fields, index catalog.Index) DisplayLine {
	itemID, ok := raw.FirstIdentifier(LineIdentifierKeys...)
	if !ok {
		itemID = unknownItemID
	}

	record, indexed := index.Lookup(itemID)

	quantity, ok := valueobject.Quantity(raw[LineQuantityKey])
	if !ok {
		quantity = 1
	}

	unitPrice, ok := valueobject.NonNegativeDecimal(raw[LinePriceKey])
	if !ok {
		if indexed {
			unitPrice = record.Price
		} else {
			unitPrice = decimal.Zero
		}
	}

	var caption string
	switch {
	case indexed && record.Described():
		caption = record.Caption
	default:
		if text, ok := raw.FirstText(LineCaptionKeys...); ok {
			caption = text
		} else {
			caption = catalog.FallbackCaption(itemID)
		}
	}

	line := NewDisplayLine(itemID, quantity, unitPrice, caption)
	if indexed {
		line.ImageURL = record.ImageURL
	}
	return line
}

// SumLines returns the sum of line totals; zero for no lines.
func SumLines(lines []DisplayLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total
}
