// Package handler implements the storefront API handlers.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/infrastructure/logger"
	"github.com/erp/storefront/internal/interfaces/http/dto"
	"github.com/erp/storefront/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// getIdentity returns the caller identity set by middleware.Identity.
func getIdentity(c *gin.Context) identity.Identity {
	return middleware.GetIdentity(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithResult sends a success response carrying the result status and
// degradation reasons.
func (h *BaseHandler) SuccessWithResult(c *gin.Context, statusCode int, data any, status shared.Status, degraded []string) {
	c.JSON(statusCode, dto.NewSuccessResponseWithMeta(data, string(status), degraded))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 response describing rejected request fields.
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError converts domain errors to HTTP responses. Unknown errors are
// logged and reported as internal errors.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// ErrorWithData sends an error response that also carries data, for failures
// that still changed local state.
func (h *BaseHandler) ErrorWithData(c *gin.Context, err error, data any) {
	code := dto.ErrCodeInternal
	message := "An unexpected error occurred"
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code = dto.NormalizeErrorCode(domainErr.Code)
		message = domainErr.Message
	}
	_ = c.Error(err)
	c.JSON(dto.GetHTTPStatus(code), dto.Response{
		Success: false,
		Data:    data,
		Error: &dto.ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: getRequestID(c),
		},
	})
}

// resultStatus reports the status of a view whose last load carried degraded.
func resultStatus(degraded []string) shared.Status {
	if len(degraded) > 0 {
		return shared.StatusDegraded
	}
	return shared.StatusOK
}
