package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Identity error codes
const (
	// ErrCodeIdentityMissing is used when the bearer token or user id is absent
	ErrCodeIdentityMissing = "ERR_IDENTITY_MISSING"
	// ErrCodeSessionInvalidated is used when the upstream rejected the token
	ErrCodeSessionInvalidated = "ERR_SESSION_INVALIDATED"
)

// View error codes
const (
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeEmptyCart    = "ERR_EMPTY_CART"
)

// Upstream error codes
const (
	// ErrCodeUpstreamUnavailable is used when a cart, order or search call failed
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeIdentityMissing:    http.StatusUnauthorized,
	ErrCodeSessionInvalidated: http.StatusUnauthorized,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeInvalidState: http.StatusConflict,
	ErrCodeEmptyCart:    http.StatusUnprocessableEntity,

	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes.
var DomainErrorCodeMapping = map[string]string{
	"IDENTITY_MISSING":    ErrCodeIdentityMissing,
	"SESSION_INVALIDATED": ErrCodeSessionInvalidated,
	"TRANSPORT_FAILURE":   ErrCodeUpstreamUnavailable,
	"EMPTY_CART":          ErrCodeEmptyCart,
	"INVALID_STATE":       ErrCodeInvalidState,
	"VIEW_NOT_FOUND":      ErrCodeNotFound,
	"INVALID_INPUT":       ErrCodeInvalidInput,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Unknown codes are returned as is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
