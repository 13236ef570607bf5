package handler

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erp/storefront/internal/interfaces/http/dto"
)

// SystemHandler handles health, readiness and build information.
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	views     func() int
	draining  atomic.Bool
}

// NewSystemHandler creates a new SystemHandler. views reports the number of
// open views and may be nil.
func NewSystemHandler(name, version string, views func() int) *SystemHandler {
	if views == nil {
		views = func() int { return 0 }
	}
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		views:     views,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	OpenViews int    `json:"open_views"`
}

// SetDraining makes Ready fail so that load balancers stop routing new
// requests during shutdown.
func (h *SystemHandler) SetDraining() {
	h.draining.Store(true)
}

// Health reports liveness.
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Ready reports whether the service accepts traffic.
// GET /ready
func (h *SystemHandler) Ready(c *gin.Context) {
	if h.draining.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "draining",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// GetSystemInfo returns build and runtime information.
// GET /api/v1/system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		OpenViews: h.views(),
	}))
}
