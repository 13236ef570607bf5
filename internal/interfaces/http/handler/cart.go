package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/storefront/internal/application/storefront"
	"github.com/erp/storefront/internal/interfaces/http/dto"
)

// CartHandler handles cart mutations made outside a cart view.
type CartHandler struct {
	BaseHandler
	carts *storefront.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *storefront.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// AddItem adds an item to the caller's cart.
// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	confirmation, err := h.carts.AddToCart(c.Request.Context(), getIdentity(c), storefront.AddToCartRequest{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, confirmation)
}
