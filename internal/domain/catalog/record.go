// Package catalog normalises raw catalog/search results into fixed-shape
// records and indexes them by item identifier.
package catalog

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

// Field name variants accepted from the catalog service, in order of preference.
var (
	IdentifierKeys = []string{"item_id", "id", "book_id"}
	CaptionKeys    = []string{"description", "caption"}
	ImageKeys      = []string{"image_url", "image"}
	PriceKey       = "price"
)

// ErrNoIdentifier rejects a raw item that carries none of IdentifierKeys.
// Rejected items are left out of the index; callers never see this as a failure.
var ErrNoIdentifier = errors.New("catalog: item has no usable identifier")

// Record is a normalised catalog item.
type Record struct {
	ItemID   string          `json:"item_id"`
	Caption  string          `json:"caption"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
	// Degraded is set when the price could not be parsed and 0 was substituted.
	Degraded bool `json:"degraded,omitempty"`

	fallbackCaption bool
}

// Described reports whether the caption came from the catalog rather than the
// identifier fallback.
func (r Record) Described() bool {
	return r.Caption != "" && !r.fallbackCaption
}

// HasImage reports whether the record carries an image URL.
func (r Record) HasImage() bool {
	return r.ImageURL != ""
}

// FallbackCaption is the caption used when no description is known for an item.
func FallbackCaption(itemID string) string {
	return "Item #" + itemID
}

// Normalize canonicalises one raw catalog entry.
func Normalize(raw valueobject.Fields) (Record, error) {
	itemID, ok := raw.FirstIdentifier(IdentifierKeys...)
	if !ok {
		return Record{}, ErrNoIdentifier
	}

	record := Record{ItemID: itemID}

	price, ok := valueobject.NonNegativeDecimal(raw[PriceKey])
	if ok {
		record.Price = price
	} else {
		record.Price = decimal.Zero
		record.Degraded = true
	}

	if caption, ok := raw.FirstText(CaptionKeys...); ok {
		record.Caption = caption
	} else {
		record.Caption = FallbackCaption(itemID)
		record.fallbackCaption = true
	}

	if image, ok := raw.FirstText(ImageKeys...); ok {
		record.ImageURL = image
	}

	return record, nil
}
