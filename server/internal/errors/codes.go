package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/hrygo/cartsync/server/service/cart"
	"github.com/hrygo/cartsync/server/service/video"
	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/cache"
)

// ErrorCode represents a specific error type returned by the cart API.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the caller did not identify itself.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the cart, item or product does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeFetchFailed indicates the backing store could not be read.
	ErrCodeFetchFailed ErrorCode = "FETCH_FAILED"
	// ErrCodeMutationFailed indicates the backing store rejected a write.
	ErrCodeMutationFailed ErrorCode = "MUTATION_FAILED"
	// ErrCodeServiceUnavailable indicates the service is not available.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeInternal is everything else.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,
	ErrCodeInvalidArgument:    http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeFetchFailed:        http.StatusBadGateway,
	ErrCodeMutationFailed:     http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	// 499 is the de facto "client closed request" status.
	ErrCodeContextCanceled: 499,
}

// APIError is a structured error carrying the code reported to clients.
type APIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *APIError) WithContext(key string, value any) *APIError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus returns the HTTP status matching the code.
func (e *APIError) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *APIError {
	return &APIError{Code: ErrCodeNotFound, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *APIError {
	return &APIError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *APIError {
	return &APIError{Code: code, Message: msg, Cause: cause}
}

// FromError classifies any error returned by the cart and video services. Not found
// wins over mutation failure so that deleting a missing item is a 404.
func FromError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case stderrors.Is(err, cart.ErrInvalidArgument), stderrors.Is(err, video.ErrInvalidArgument):
		return Wrap(err, ErrCodeInvalidArgument, "invalid argument")
	case stderrors.Is(err, store.ErrNotFound):
		return Wrap(err, ErrCodeNotFound, "not found")
	case stderrors.Is(err, cache.ErrMutation):
		return Wrap(err, ErrCodeMutationFailed, "the change could not be saved")
	case stderrors.Is(err, cache.ErrFetch):
		return Wrap(err, ErrCodeFetchFailed, "the data could not be loaded")
	case stderrors.Is(err, cache.ErrClosed):
		return Wrap(err, ErrCodeServiceUnavailable, "shutting down")
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeContextCanceled, "request canceled")
	default:
		return Wrap(err, ErrCodeInternal, "internal error")
	}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
