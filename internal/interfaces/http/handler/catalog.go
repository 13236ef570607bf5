package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/storefront/internal/application/storefront"
	"github.com/erp/storefront/internal/interfaces/http/dto"
)

// CatalogHandler serves the product list.
type CatalogHandler struct {
	BaseHandler
	catalog      *storefront.CatalogIndexBuilder
	defaultLimit int
}

// NewCatalogHandler creates a new CatalogHandler. defaultLimit applies when a
// request carries no limit.
func NewCatalogHandler(catalog *storefront.CatalogIndexBuilder, defaultLimit int) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, defaultLimit: defaultLimit}
}

// Search returns normalised catalog records matching q.
// GET /catalog/search?q=&limit=
func (h *CatalogHandler) Search(c *gin.Context) {
	var query dto.CatalogSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}
	if query.Limit == 0 {
		query.Limit = h.defaultLimit
	}

	records, err := h.catalog.Search(c.Request.Context(), getIdentity(c), query.Q, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}
