package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/storefront/internal/application/storefront"
	"github.com/erp/storefront/internal/interfaces/http/dto"
)

// SearchViewHandler serves debounced live search views.
type SearchViewHandler struct {
	BaseHandler
	views *storefront.ViewRegistry
}

// NewSearchViewHandler creates a new SearchViewHandler
func NewSearchViewHandler(views *storefront.ViewRegistry) *SearchViewHandler {
	return &SearchViewHandler{views: views}
}

// Open opens a live search view.
// POST /views/search
func (h *SearchViewHandler) Open(c *gin.Context) {
	view, err := h.views.OpenSearchView(c.Request.Context(), getIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view.Snapshot())
}

// Type replaces the query of a live search view. The fetch runs once typing
// pauses; poll Get for the results.
// PUT /views/search/:id
func (h *SearchViewHandler) Type(c *gin.Context) {
	view, ok := h.searchView(c)
	if !ok {
		return
	}
	var req dto.SearchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if err := view.Type(req.Query); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view.Snapshot())
}

// Get returns the latest query and results of a live search view.
// GET /views/search/:id
func (h *SearchViewHandler) Get(c *gin.Context) {
	view, ok := h.searchView(c)
	if !ok {
		return
	}
	h.Success(c, view.Snapshot())
}

// Close closes a live search view.
// DELETE /views/search/:id
func (h *SearchViewHandler) Close(c *gin.Context) {
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

func (h *SearchViewHandler) searchView(c *gin.Context) (*storefront.SearchView, bool) {
	var uri dto.ViewURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return nil, false
	}
	view, err := h.views.SearchView(uri.ID, getIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return view, true
}
