package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/storefront/internal/application/storefront"
)

// OrderHandler serves the order history.
type OrderHandler struct {
	BaseHandler
	history *storefront.OrderHistoryService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(history *storefront.OrderHistoryService) *OrderHandler {
	return &OrderHandler{history: history}
}

// List returns the caller's reconciled order history.
// GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	res := h.history.History(c.Request.Context(), getIdentity(c))
	if res.IsFailed() {
		h.HandleError(c, res.Err())
		return
	}
	h.SuccessWithResult(c, http.StatusOK, res.Value, res.Status, res.ReasonCodes())
}
