// Package errors defines the service error taxonomy. Every failure path in
// the API returns a ServiceError with a stable code so callers can branch
// programmatically instead of matching message strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a failure class.
type ErrorCode string

const (
	CodeUnauthenticated   ErrorCode = "UNAUTHENTICATED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeRecipientNotFound ErrorCode = "RECIPIENT_NOT_FOUND"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeValidation        ErrorCode = "VALIDATION"
	CodeStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"
	CodeTransferFailed    ErrorCode = "TRANSFER_FAILED"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeInternal          ErrorCode = "INTERNAL"
)

// ServiceError carries a failure class, a human-readable message and
// optional structured detail. The wrapped cause is kept for logging but is
// never serialized to callers.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches two service errors by code so sentinel-style comparisons work.
func (e *ServiceError) Is(target error) bool {
	var other *ServiceError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithDetails attaches a structured detail entry and returns the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code ErrorCode, status int, message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Err:        cause,
	}
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return newError(CodeUnauthenticated, http.StatusUnauthorized, message, nil)
}

// Forbidden reports an authenticated caller acting outside its entitlement.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "operation not permitted"
	}
	return newError(CodeForbidden, http.StatusForbidden, message, nil)
}

// NotFound reports an absent asset or resource.
func NotFound(resource, id string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound,
		fmt.Sprintf("%s %s not found", resource, id), nil)
}

// RecipientNotFound reports an email that resolves to no identity. The
// offending email travels in the details so the caller can re-prompt.
func RecipientNotFound(email string) *ServiceError {
	e := newError(CodeRecipientNotFound, http.StatusNotFound,
		fmt.Sprintf("no user found with email: %s", email), nil)
	return e.WithDetails("email", email)
}

// Conflict reports the optimistic ownership guard tripping at commit time.
func Conflict(message string) *ServiceError {
	if message == "" {
		message = "asset ownership changed concurrently"
	}
	return newError(CodeConflict, http.StatusConflict, message, nil)
}

// Validation reports malformed input rejected before any store access.
func Validation(message string) *ServiceError {
	return newError(CodeValidation, http.StatusBadRequest, message, nil)
}

// StoreUnavailable reports a backing store that could not be reached. The
// cause is retained for logs only.
func StoreUnavailable(cause error) *ServiceError {
	return newError(CodeStoreUnavailable, http.StatusServiceUnavailable,
		"asset store unavailable", cause)
}

// TransferFailed reports a transfer commit that failed for a reason other
// than the optimistic guard.
func TransferFailed(cause error) *ServiceError {
	return newError(CodeTransferFailed, http.StatusBadGateway,
		"asset transfer failed", cause)
}

// RateLimited reports a caller exceeding its request budget.
func RateLimited(limit int, window string) *ServiceError {
	e := newError(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded", nil)
	e.WithDetails("limit", limit)
	e.WithDetails("window", window)
	return e
}

// Internal reports an unexpected server-side failure.
func Internal(message string, cause error) *ServiceError {
	if message == "" {
		message = "internal error"
	}
	return newError(CodeInternal, http.StatusInternalServerError, message, cause)
}

// GetServiceError extracts a ServiceError from err, or nil if none is in the
// chain.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
