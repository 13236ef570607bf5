package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Errors that reach the caller of a view operation.
var (
	ErrIdentityMissing    = NewDomainError("IDENTITY_MISSING", "Identity token or user id is missing")
	ErrTransportFailure   = NewDomainError("TRANSPORT_FAILURE", "Upstream service request failed")
	ErrSessionInvalidated = NewDomainError("SESSION_INVALIDATED", "Session is no longer valid")
	ErrEmptyCart          = NewDomainError("EMPTY_CART", "Your cart is empty")
	ErrInvalidState       = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrViewNotFound       = NewDomainError("VIEW_NOT_FOUND", "View not found or already closed")
	ErrInvalidInput       = NewDomainError("INVALID_INPUT", "Invalid input provided")
)

// Conditions that are absorbed locally and only ever appear as Degraded reasons.
var (
	ErrEnrichmentUnavailable = NewDomainError("ENRICHMENT_UNAVAILABLE", "Catalog enrichment unavailable")
	ErrMalformedPayload      = NewDomainError("MALFORMED_PAYLOAD", "Item collection could not be parsed")
	ErrUserAborted           = NewDomainError("USER_ABORTED", "Operation declined by the user")
)
