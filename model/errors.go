package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest         = "BAD_REQUEST"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN"
	ErrWriteDenied        = "WRITE_DENIED"
	ErrNotFound           = "NOT_FOUND"
	ErrConflict           = "CONFLICT"
	ErrValidationError    = "VALIDATION_ERROR"
	ErrInternalError      = "INTERNAL_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrBackendTimeout     = "BACKEND_TIMEOUT"
)

// Resource-protocol error codes.
const (
	ErrMetaFetch       = "META_FETCH_FAILED"
	ErrBackendRejected = "BACKEND_REJECTED"
	ErrUploadFailed    = "UPLOAD_FAILED"
	ErrInvalidStep     = "INVALID_STEP"
	ErrDraftNotFound   = "DRAFT_NOT_FOUND"
)

// ErrorEnvelope is the standard error response envelope returned by the
// gateway. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewWriteDeniedError returns a WRITE_DENIED error. It signals that a
// mutation was blocked at the gateway before any upstream call was made.
func NewWriteDeniedError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrWriteDenied,
		Message: "The current role cannot perform write operations",
	}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewMetaFetchError returns a META_FETCH_FAILED error wrapping the transport
// failure that prevented resource metadata from loading.
func NewMetaFetchError(resource string, cause error) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrMetaFetch,
		Message: fmt.Sprintf("loading metadata for %q: %v", resource, cause),
	}
}

// NewBackendRejectedError returns a BACKEND_REJECTED error carrying the
// upstream business failure message (nonzero response code).
func NewBackendRejectedError(code int, msg string) *ErrorEnvelope {
	if msg == "" {
		msg = fmt.Sprintf("upstream rejected the request (code %d)", code)
	}
	return &ErrorEnvelope{Code: ErrBackendRejected, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error.
func NewBackendUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: "The resource service is temporarily unavailable",
	}
}

// NewBackendTimeoutError returns a BACKEND_TIMEOUT error.
func NewBackendTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendTimeout,
		Message: "The resource service did not respond in time",
	}
}

// NewInvalidStepError returns an INVALID_STEP error for a wizard transition
// that the current draft state does not allow.
func NewInvalidStepError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidStep, Message: msg}
}

// NewDraftNotFoundError returns a DRAFT_NOT_FOUND error.
func NewDraftNotFoundError(id string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrDraftNotFound,
		Message: fmt.Sprintf("setup draft %q not found", id),
	}
}

// NewUploadError returns an UPLOAD_FAILED error with a best-effort message
// extracted from the storage backend response.
func NewUploadError(msg string) *ErrorEnvelope {
	if msg == "" {
		msg = "File upload failed"
	}
	return &ErrorEnvelope{Code: ErrUploadFailed, Message: msg}
}
