package errors

import "fmt"

// APIError is the JSON error body returned by every endpoint
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

// New builds an APIError whose status follows from its code
func New(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails attaches extra context for the client
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

func NotFound(resource string) *APIError {
	return New(ErrNotFound, resource+" not found")
}

func Unauthorized(message string) *APIError {
	return New(ErrUnauthorized, message)
}

func Forbidden(message string) *APIError {
	return New(ErrForbidden, message)
}

// ValidationError reports an unacceptable value for field
func ValidationError(field, message string) *APIError {
	err := New(ErrValidation, message)
	err.Field = field
	return err
}

func BadRequest(message string) *APIError {
	return New(ErrBadRequest, message)
}

// InternalError never carries the underlying cause; log it instead
func InternalError(message string) *APIError {
	return New(ErrInternalError, message)
}

func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return New(ErrRateLimited, message)
}

func ServiceUnavailable(service string) *APIError {
	return New(ErrServiceUnavail, service+" is temporarily unavailable")
}

// InteractionFailed is returned for a refused vote
func InteractionFailed(message string) *APIError {
	return New(ErrInteractionFailed, message)
}
