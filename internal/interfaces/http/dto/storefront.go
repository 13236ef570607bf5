package dto

import "github.com/shopspring/decimal"

// AddToCartRequest is the body of POST /cart/items.
type AddToCartRequest struct {
	ItemID   string          `json:"item_id" binding:"required,max=128"`
	Quantity int             `json:"quantity" binding:"max=10000"`
	Price    decimal.Decimal `json:"price"`
}

// CheckoutRequest is the body of POST /views/cart/:id/checkout. Confirm
// carries the user's answer to the purchase prompt; ExpectedTotal, when set,
// must match the cart total for the order to go ahead.
type CheckoutRequest struct {
	Confirm       *bool            `json:"confirm" binding:"required"`
	ExpectedTotal *decimal.Decimal `json:"expected_total"`
}

// SearchQueryRequest is the body of PUT /views/search/:id.
type SearchQueryRequest struct {
	Query string `json:"query" binding:"max=200"`
}

// CatalogSearchQuery holds the query string of GET /catalog/search.
type CatalogSearchQuery struct {
	Q     string `form:"q" binding:"required,max=200"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ViewURI binds the :id path parameter of view routes.
type ViewURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// CartItemURI binds the path parameters of DELETE /views/cart/:id/items/:itemId.
type CartItemURI struct {
	ID     string `uri:"id" binding:"required,uuid"`
	ItemID string `uri:"itemId" binding:"required,max=128"`
}
