package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/storefront/internal/application/storefront"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/trade"
	"github.com/erp/storefront/internal/interfaces/http/dto"
)

// CartViewHandler serves open cart views.
type CartViewHandler struct {
	BaseHandler
	views *storefront.ViewRegistry
}

// NewCartViewHandler creates a new CartViewHandler
func NewCartViewHandler(views *storefront.ViewRegistry) *CartViewHandler {
	return &CartViewHandler{views: views}
}

// RemovalResponse is the outcome of an optimistic removal with the cart as it
// now stands.
type RemovalResponse struct {
	Removal *storefront.RemovalResult `json:"removal"`
	View    storefront.CartSnapshot   `json:"view"`
}

// Open opens and loads a cart view.
// POST /views/cart
func (h *CartViewHandler) Open(c *gin.Context) {
	view, res, err := h.views.OpenCartView(c.Request.Context(), getIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondLoad(c, http.StatusCreated, view, res)
}

// Get returns the local state of a cart view.
// GET /views/cart/:id
func (h *CartViewHandler) Get(c *gin.Context) {
	view, ok := h.cartView(c)
	if !ok {
		return
	}
	snap := view.Snapshot()
	h.SuccessWithResult(c, http.StatusOK, snap, resultStatus(snap.Degraded), snap.Degraded)
}

// Reload rebuilds a cart view from the cart store and catalog.
// POST /views/cart/:id/reload
func (h *CartViewHandler) Reload(c *gin.Context) {
	view, ok := h.cartView(c)
	if !ok {
		return
	}
	h.respondLoad(c, http.StatusOK, view, view.Load(c.Request.Context()))
}

// RemoveItem optimistically removes every line of an item.
// DELETE /views/cart/:id/items/:itemId
func (h *CartViewHandler) RemoveItem(c *gin.Context) {
	var uri dto.CartItemURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}
	view, err := h.views.CartView(uri.ID, getIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := view.RemoveFromCart(c.Request.Context(), uri.ItemID)
	if err != nil {
		if result == nil {
			h.HandleError(c, err)
			return
		}
		h.ErrorWithData(c, err, RemovalResponse{Removal: result, View: view.Snapshot()})
		return
	}
	h.Success(c, RemovalResponse{Removal: result, View: view.Snapshot()})
}

// Checkout places an order for the cart once the caller confirmed it.
// POST /views/cart/:id/checkout
func (h *CartViewHandler) Checkout(c *gin.Context) {
	view, ok := h.cartView(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := view.PlaceOrder(c.Request.Context(), confirmerFor(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Close closes a cart view.
// DELETE /views/cart/:id
func (h *CartViewHandler) Close(c *gin.Context) {
	var uri dto.ViewURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}
	if err := h.views.Close(uri.ID, getIdentity(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *CartViewHandler) cartView(c *gin.Context) (*storefront.CartView, bool) {
	var uri dto.ViewURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return nil, false
	}
	view, err := h.views.CartView(uri.ID, getIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return view, true
}

func (h *CartViewHandler) respondLoad(c *gin.Context, statusCode int, view *storefront.CartView, res shared.Result[trade.Cart]) {
	if res.IsFailed() {
		h.HandleError(c, res.Err())
		return
	}
	h.SuccessWithResult(c, statusCode, view.Snapshot(), res.Status, res.ReasonCodes())
}

func confirmerFor(req dto.CheckoutRequest) storefront.Confirmer {
	if req.Confirm == nil || !*req.Confirm {
		return storefront.StaticConfirmer(false)
	}
	if req.ExpectedTotal != nil {
		return storefront.TotalConfirmer{Shown: *req.ExpectedTotal}
	}
	return storefront.StaticConfirmer(true)
}
