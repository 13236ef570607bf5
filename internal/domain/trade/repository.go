package trade

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

// CartAddition is one add-to-cart request as sent to the cart store.
type CartAddition struct {
	ItemID   string
	Quantity int
	Price    decimal.Decimal
}

// CartStore is the remote cart service, keyed by user.
type CartStore interface {
	FetchCart(ctx context.Context, id identity.Identity) (RawCart, error)
	AddItem(ctx context.Context, id identity.Identity, addition CartAddition) error
	RemoveItem(ctx context.Context, id identity.Identity, itemID string) error
}

// OrderStore is the remote order-history service.
type OrderStore interface {
	FetchOrders(ctx context.Context, id identity.Identity) ([]valueobject.Fields, error)
	PlaceOrder(ctx context.Context, id identity.Identity) error
}
