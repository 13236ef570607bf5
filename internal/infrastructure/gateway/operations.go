package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
	"github.com/erp/storefront/internal/domain/trade"
)

// Upstream operation names, used for spans and metrics.
const (
	OpSearchCatalog = "search_catalog"
	OpFetchCart     = "fetch_cart"
	OpAddToCart     = "add_to_cart"
	OpRemoveItem    = "remove_from_cart"
	OpFetchOrders   = "fetch_orders"
	OpPlaceOrder    = "place_order"
)

// addToCartBody is the wire shape of POST /cart/{userId}/add.
type addToCartBody struct {
	ItemID   string      `json:"item_id"`
	Quantity int         `json:"quantity"`
	Price    json.Number `json:"price"`
}

// SearchCatalog runs GET /search?q=<query>&limit=<n> and returns the raw result objects.
// Non-object entries are skipped.
func (c *Client) SearchCatalog(ctx context.Context, id identity.Identity, query string, limit int) ([]valueobject.Fields, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var results []valueobject.Fields
	err := c.do(ctx, call{
		operation: OpSearchCatalog,
		method:    http.MethodGet,
		path:      []string{"search"},
		query:     params,
		id:        id,
	}, func(body []byte) error {
		v, err := decode(body)
		if err != nil {
			return err
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: search response is %T, not an object", shared.ErrMalformedPayload, v)
		}
		raw, ok := obj["results"].([]any)
		if !ok && obj["results"] != nil {
			return fmt.Errorf("%w: search results field is %T", shared.ErrMalformedPayload, obj["results"])
		}
		results = objects(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FetchCart runs GET /cart/{userId}. The items field is returned untouched;
// it may be a native array or a JSON-encoded string.
func (c *Client) FetchCart(ctx context.Context, id identity.Identity) (trade.RawCart, error) {
	if err := id.Validate(); err != nil {
		return trade.RawCart{}, err
	}

	cart := trade.RawCart{UserID: id.UserID}
	err := c.do(ctx, call{
		operation: OpFetchCart,
		method:    http.MethodGet,
		path:      []string{"cart", id.UserID},
		id:        id,
	}, func(body []byte) error {
		v, err := decode(body)
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: cart response is %T, not an object", shared.ErrMalformedPayload, v)
		}
		if uid, ok := valueobject.Identifier(obj["user_id"]); ok {
			cart.UserID = uid
		}
		cart.Items = obj["items"]
		return nil
	})
	if err != nil {
		return trade.RawCart{}, err
	}
	return cart, nil
}

// AddItem runs POST /cart/{userId}/add.
func (c *Client) AddItem(ctx context.Context, id identity.Identity, addition trade.CartAddition) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return c.do(ctx, call{
		operation: OpAddToCart,
		method:    http.MethodPost,
		path:      []string{"cart", id.UserID, "add"},
		body: addToCartBody{
			ItemID:   addition.ItemID,
			Quantity: addition.Quantity,
			Price:    json.Number(addition.Price.String()),
		},
		id: id,
	}, nil)
}

// RemoveItem runs DELETE /cart/{userId}/remove/{itemId}.
func (c *Client) RemoveItem(ctx context.Context, id identity.Identity, itemID string) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return c.do(ctx, call{
		operation: OpRemoveItem,
		method:    http.MethodDelete,
		path:      []string{"cart", id.UserID, "remove", itemID},
		id:        id,
	}, nil)
}

// FetchOrders runs GET /orders/{userId}. The response may be a bare array or
// an object with an "orders" array.
func (c *Client) FetchOrders(ctx context.Context, id identity.Identity) ([]valueobject.Fields, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var orders []valueobject.Fields
	err := c.do(ctx, call{
		operation: OpFetchOrders,
		method:    http.MethodGet,
		path:      []string{"orders", id.UserID},
		id:        id,
	}, func(body []byte) error {
		v, err := decode(body)
		if err != nil {
			return err
		}
		switch t := v.(type) {
		case nil:
			orders = []valueobject.Fields{}
		case []any:
			orders = objects(t)
		case map[string]any:
			list, ok := t["orders"].([]any)
			if !ok {
				return fmt.Errorf("%w: orders response object has no orders array", shared.ErrMalformedPayload)
			}
			orders = objects(list)
		default:
			return fmt.Errorf("%w: orders response is %T", shared.ErrMalformedPayload, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// PlaceOrder runs POST /orders/{userId}/place.
func (c *Client) PlaceOrder(ctx context.Context, id identity.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return c.do(ctx, call{
		operation: OpPlaceOrder,
		method:    http.MethodPost,
		path:      []string{"orders", id.UserID, "place"},
		id:        id,
	}, nil)
}

func objects(entries []any) []valueobject.Fields {
	out := make([]valueobject.Fields, 0, len(entries))
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok {
			out = append(out, valueobject.Fields(m))
		}
	}
	return out
}

var (
	_ catalog.Searcher = (*Client)(nil)
	_ trade.CartStore  = (*Client)(nil)
	_ trade.OrderStore = (*Client)(nil)
)
