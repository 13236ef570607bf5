package trade

import (
	"github.com/shopspring/decimal"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/shared"
)

// RawCart is the cart store's response before reconciliation.
// Items is either a JSON string holding an array or a decoded array.
type RawCart struct {
	UserID string
	Items  any
}

// Cart is the reconciled, display-ready cart of one user.
type Cart struct {
	UserID string          `json:"user_id"`
	Lines  []DisplayLine   `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

// NewCart builds a cart whose total is the sum of its line totals.
func NewCart(userID string, lines []DisplayLine) Cart {
	if lines == nil {
		lines = []DisplayLine{}
	}
	return Cart{
		UserID: userID,
		Lines:  lines,
		Total:  SumLines(lines),
	}
}

// EmptyCart returns a cart with no lines and a zero total.
func EmptyCart(userID string) Cart {
	return NewCart(userID, nil)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Contains reports whether any line carries itemID.
func (c Cart) Contains(itemID string) bool {
	for _, l := range c.Lines {
		if l.ItemID == itemID {
			return true
		}
	}
	return false
}

// RemovedLine is a line taken out of a cart together with its former position.
type RemovedLine struct {
	Index int
	Line  DisplayLine
}

// Without returns a copy of the cart with every line carrying itemID removed,
// the total recomputed, and the removed lines with their original positions.
func (c Cart) Without(itemID string) (Cart, []RemovedLine) {
	kept := make([]DisplayLine, 0, len(c.Lines))
	var removed []RemovedLine
	for i, l := range c.Lines {
		if l.ItemID == itemID {
			removed = append(removed, RemovedLine{Index: i, Line: l})
			continue
		}
		kept = append(kept, l)
	}
	return NewCart(c.UserID, kept), removed
}

// Restore re-inserts previously removed lines at their original positions.
// Positions beyond the current length append.
func (c Cart) Restore(removed []RemovedLine) Cart {
	if len(removed) == 0 {
		return c
	}
	lines := make([]DisplayLine, 0, len(c.Lines)+len(removed))
	lines = append(lines, c.Lines...)
	for _, r := range removed {
		pos := r.Index
		if pos > len(lines) {
			pos = len(lines)
		}
		lines = append(lines, DisplayLine{})
		copy(lines[pos+1:], lines[pos:])
		lines[pos] = r.Line
	}
	return NewCart(c.UserID, lines)
}

// ReconcileCart parses the raw item collection and reconciles every line with
// the index, preserving the original line order.
//
// A malformed collection degrades to an empty cart; it is never an error.
func ReconcileCart(raw RawCart, index catalog.Index) shared.Result[Cart] {
	rawLines, err := ParseItems(raw.Items)

	lines := make([]DisplayLine, 0, len(rawLines))
	for _, rl := range rawLines {
		lines = append(lines, ReconcileLine(rl, index))
	}

	cart := NewCart(raw.UserID, lines)
	if err != nil {
		return shared.Degraded(cart, err)
	}
	return shared.Ok(cart)
}
