// Package domain provides the unified request/response types and
// canonical error taxonomy for the proxy.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType categorizes an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates malformed or out-of-range input,
	// including unsupported models.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates a missing or invalid caller credential.
	ErrorTypeAuthentication ErrorType = "authentication_error"

	// ErrorTypeMethodNotAllowed indicates an unsupported HTTP method.
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"

	// ErrorTypeNotFound indicates an unknown path or resource.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeServiceUnavailable indicates a required backend
	// credential/binding is absent.
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"

	// ErrorTypeBackend indicates the called backend returned a non-success
	// or malformed response. Surfaced to the caller as a 400 so that the
	// caller, not the proxy, decides whether to retry.
	ErrorTypeBackend ErrorType = "backend_error"

	// ErrorTypeInternal indicates an unexpected failure in the chain.
	ErrorTypeInternal ErrorType = "internal_error"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeModelNotSupported   ErrorCode = "model_not_supported"
	ErrorCodeAdapterMissing      ErrorCode = "adapter_not_implemented"
	ErrorCodeProviderUnavailable ErrorCode = "provider_not_configured"
	ErrorCodeInvalidAPIKey       ErrorCode = "invalid_api_key"
	ErrorCodePermissionDenied    ErrorCode = "permission_denied"
	ErrorCodeRateLimited         ErrorCode = "rate_limited"
	ErrorCodeSafetyBlocked       ErrorCode = "safety_blocked"
	ErrorCodeEmptyResponse       ErrorCode = "empty_response"
)

// APIError is the canonical error returned by validators, the router and
// the provider adapters, and translated to the wire envelope by the server.
type APIError struct {
	Type    ErrorType   `json:"type"`
	Code    ErrorCode   `json:"code,omitempty"`
	Message string      `json:"message"`
	Param   string      `json:"param,omitempty"`
	Backend ProviderTag `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode maps the error type to the status the caller sees.
// Backend failures are deliberately 400-class: the proxy treats them as
// the caller's problem to retry, not its own job to mask.
func (e *APIError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest, ErrorTypeBackend:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithParam adds the offending parameter name to the error.
func (e *APIError) WithParam(param string) *APIError {
	e.Param = param
	return e
}

// WithBackend records which backend family the error originated from.
func (e *APIError) WithBackend(p ProviderTag) *APIError {
	e.Backend = p
	return e
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{Type: errType, Message: message}
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(format string, args ...any) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, fmt.Sprintf(format, args...))
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, message)
}

// ErrServiceUnavailable creates a service unavailable error.
func ErrServiceUnavailable(format string, args ...any) *APIError {
	return NewAPIError(ErrorTypeServiceUnavailable, fmt.Sprintf(format, args...))
}

// ErrBackend creates a backend error carrying the upstream detail.
func ErrBackend(format string, args ...any) *APIError {
	return NewAPIError(ErrorTypeBackend, fmt.Sprintf(format, args...))
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *APIError {
	return NewAPIError(ErrorTypeInternal, message)
}
