// Package router assembles the storefront API from domain route groups.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/erp/storefront/internal/infrastructure/logger"
	"github.com/erp/storefront/internal/interfaces/http/dto"
)

// RouteRegistrar registers a set of routes on the versioned API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts route registrars under /api/<version>.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix, "v1" by default.
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router on engine.
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars for Setup.
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Prefix is the versioned API prefix, e.g. /api/v1.
func (r *Router) Prefix() string {
	return "/api/" + r.apiVersion
}

// Setup registers every queued registrar. Unknown paths answer with the
// API error envelope instead of gin's plain-text 404.
func (r *Router) Setup() {
	api := r.engine.Group(r.Prefix())
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", c.GetString(logger.GinRequestIDKey),
		))
	})
}

// Route describes one registered endpoint relative to the API prefix.
type Route struct {
	Method string
	Path   string
}

// DomainGroup is a path prefix with shared middleware and its routes.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a route group mounted at prefix.
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware that runs before every route of the group.
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, p string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: p, handlers: handlers})
	return dg
}

func (dg *DomainGroup) GET(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, p, handlers)
}

func (dg *DomainGroup) POST(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, p, handlers)
}

func (dg *DomainGroup) PUT(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, p, handlers)
}

func (dg *DomainGroup) DELETE(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, p, handlers)
}

// RegisterRoutes implements RouteRegistrar.
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, r := range dg.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
}

// Routes lists the group's endpoints in registration order.
func (dg *DomainGroup) Routes() []Route {
	routes := make([]Route, 0, len(dg.routes))
	for _, r := range dg.routes {
		p := path.Join(dg.prefix, r.path)
		routes = append(routes, Route{Method: r.method, Path: p})
	}
	return routes
}

// Name identifies the group in startup logs.
func (dg *DomainGroup) Name() string {
	return dg.name
}
