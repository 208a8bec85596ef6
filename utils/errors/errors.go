package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`

	cause error
}

// Error returns the error message
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any APIError carrying the same code, so copies made by
// WithDetails or Wrap still compare equal to their sentinel.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// WithDetails returns a copy of e with details set.
func (e *APIError) WithDetails(details string) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of e that wraps cause. The cause's message becomes
// the details unless details are already set.
func (e *APIError) WithCause(cause error) *APIError {
	cp := *e
	cp.cause = cause
	if cp.Details == "" && cause != nil {
		cp.Details = cause.Error()
	}
	return &cp
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrUnauthorized = NewAPIError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrNotFound     = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternal     = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrConflict     = NewAPIError("CONFLICT", "Resource conflict", http.StatusConflict)

	ErrInvalidCoordinates  = NewAPIError("INVALID_COORDINATES", "Coordinates must be finite, lat in [-90, 90] and lng in [-180, 180]", http.StatusBadRequest)
	ErrDenied              = NewAPIError("DENIED", "Identity is not allowed to access this resource", http.StatusForbidden)
	ErrUnavailable         = NewAPIError("UNAVAILABLE", "Backend temporarily unavailable", http.StatusServiceUnavailable)
	ErrOperationInProgress = NewAPIError("OPERATION_IN_PROGRESS", "A marker is already being created", http.StatusConflict)
	ErrNotReady            = NewAPIError("NOT_READY", "Markers are not loaded", http.StatusConflict)
	ErrStaleOperation      = NewAPIError("STALE_OPERATION", "Session changed while the operation was running", http.StatusConflict)
	ErrCreateFailed        = NewAPIError("CREATE_FAILED", "Failed to create marker", http.StatusBadGateway)
	ErrLoginFailed         = NewAPIError("LOGIN_FAILED", "Sign-in failed", http.StatusUnauthorized)
	ErrLogoutFailed        = NewAPIError("LOGOUT_FAILED", "Sign-out could not be confirmed remotely", http.StatusBadGateway)
)

// Wrap converts err into an APIError. APIErrors pass through unchanged.
func Wrap(err error, code, message string, status int) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return NewAPIError(code, message, status).WithCause(err)
}

// Is, As and Join forward to the standard library so callers importing this
// package as errors keep the usual helpers.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
