// Package errors defines the service error taxonomy shared by the gateway,
// the domain services and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies the failure class of a ServiceError.
type ErrorCode string

const (
	CodeTransport  ErrorCode = "TRANSPORT_ERROR"
	CodeAuth       ErrorCode = "AUTH_ERROR"
	CodeBackend    ErrorCode = "BACKEND_ERROR"
	CodeShape      ErrorCode = "SHAPE_ERROR"
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeConflict   ErrorCode = "CONFLICT"
	CodeRateLimit  ErrorCode = "RATE_LIMITED"
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// ServiceError carries a machine-readable code, an HTTP status for the edge
// and optional details for the response body.
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

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a key/value pair to the error's details map.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetServiceError unwraps err to a *ServiceError, or nil if there is none.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// Unauthorized builds an auth error for missing or rejected credentials.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "unauthorized"
	}
	return &ServiceError{Code: CodeAuth, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden builds an auth error for insufficient privileges.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "forbidden"
	}
	return &ServiceError{Code: CodeAuth, Message: message, HTTPStatus: http.StatusForbidden}
}

// InvalidToken builds an auth error for a malformed or expired token.
func InvalidToken(err error) *ServiceError {
	return &ServiceError{Code: CodeAuth, Message: "invalid token", HTTPStatus: http.StatusUnauthorized, Err: err}
}

// Validation builds a bad-request error.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NotFound builds a not-found error for a named resource.
func NotFound(resource, id string) *ServiceError {
	return &ServiceError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]interface{}{"id": id},
	}
}

// Conflict builds a conflict error.
func Conflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// Transport builds an error for network-level failures.
func Transport(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeTransport, Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

// Backend builds an error for upstream rejections carrying the upstream status.
func Backend(status int, message string) *ServiceError {
	return &ServiceError{
		Code:       CodeBackend,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]interface{}{"upstream_status": status},
	}
}

// Shape builds an error for well-formed responses missing expected fields.
func Shape(message string) *ServiceError {
	return &ServiceError{Code: CodeShape, Message: message, HTTPStatus: http.StatusBadGateway}
}

// Internal builds a catch-all server error.
func Internal(message string, err error) *ServiceError {
	if message == "" {
		message = "internal error"
	}
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// RateLimited builds a too-many-requests error.
func RateLimited() *ServiceError {
	return &ServiceError{Code: CodeRateLimit, Message: "rate limit exceeded", HTTPStatus: http.StatusTooManyRequests}
}
