package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{status: http.StatusOK, level: zapcore.InfoLevel},
		{status: http.StatusNotFound, level: zapcore.WarnLevel},
		{status: http.StatusBadGateway, level: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := gin.New()
			router.Use(GinMiddleware(zap.New(core)))
			router.GET("/x", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?q=1", nil))

			logs := recorded.FilterMessage("HTTP Request").All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, "q=1", logs[0].ContextMap()["query"])
		})
	}
}

func TestGinMiddleware_PropagatesLoggerToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-42")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/x", func(c *gin.Context) {
		L(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	inside := recorded.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "req-42", inside[0].ContextMap()["request_id"])
	assert.Equal(t, "/x", inside[0].ContextMap()["path"])
}

func TestGinMiddleware_ViewIDFromRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/views/cart/:id", func(c *gin.Context) {
		assert.Equal(t, "v-7", GetViewID(c.Request.Context()))
		L(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/views/cart/v-7", nil))

	inside := recorded.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "v-7", inside[0].ContextMap()["view_id"])
	assert.Equal(t, "/views/cart/:id", inside[0].ContextMap()["path"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}
