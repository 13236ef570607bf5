package router

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/storefront/internal/interfaces/http/handler"
	"github.com/erp/storefront/internal/interfaces/http/middleware"
)

// Handlers are the API handlers mounted by Mount.
type Handlers struct {
	CartViews   *handler.CartViewHandler
	Carts       *handler.CartHandler
	Orders      *handler.OrderHandler
	Catalog     *handler.CatalogHandler
	SearchViews *handler.SearchViewHandler
	System      *handler.SystemHandler
}

// Groups returns the API route groups; all but system require an identity.
func Groups(h Handlers) []*DomainGroup {
	requireIdentity := middleware.Identity()

	cartViews := NewDomainGroup("cart-views", "/views/cart").Use(requireIdentity).
		POST("", h.CartViews.Open).
		GET("/:id", h.CartViews.Get).
		POST("/:id/reload", h.CartViews.Reload).
		DELETE("/:id/items/:itemId", h.CartViews.RemoveItem).
		POST("/:id/checkout", h.CartViews.Checkout).
		DELETE("/:id", h.CartViews.Close)

	searchViews := NewDomainGroup("search-views", "/views/search").Use(requireIdentity).
		POST("", h.SearchViews.Open).
		PUT("/:id", h.SearchViews.Type).
		GET("/:id", h.SearchViews.Get).
		DELETE("/:id", h.SearchViews.Close)

	cart := NewDomainGroup("cart", "/cart").Use(requireIdentity).
		POST("/items", h.Carts.AddItem)

	orders := NewDomainGroup("orders", "/orders").Use(requireIdentity).
		GET("", h.Orders.List)

	catalog := NewDomainGroup("catalog", "/catalog").Use(requireIdentity).
		GET("/search", h.Catalog.Search)

	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo)

	return []*DomainGroup{cartViews, searchViews, cart, orders, catalog, system}
}

// Mount registers the ops endpoints and the versioned API on engine and
// returns the API routes with their full paths.
func Mount(engine *gin.Engine, h Handlers, opts ...RouterOption) []Route {
	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	r := NewRouter(engine, opts...)
	var routes []Route
	for _, group := range Groups(h) {
		r.Register(group)
		for _, rt := range group.Routes() {
			routes = append(routes, Route{Method: rt.Method, Path: r.Prefix() + rt.Path})
		}
	}
	r.Setup()
	return routes
}
