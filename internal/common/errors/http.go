// internal/common/errors/http.go
package errors

import "net/http"

// httpStatusMapping maps internal error codes to HTTP status codes; the API
// surface consumes this when rendering a DomainError.
var httpStatusMapping = map[ErrorCode]int{
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeInvalidTransition: http.StatusUnprocessableEntity,
	ErrCodeApplicationLocked: http.StatusConflict,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeSchemeInactive:    http.StatusUnprocessableEntity,
	ErrCodeSchemeFrozen:      http.StatusConflict,
	ErrCodeForbidden:         http.StatusForbidden,

	ErrCodeDatabaseConnectionFailed: http.StatusServiceUnavailable,
	ErrCodeQueryExecutionFailed:     http.StatusInternalServerError,
	ErrCodeSearchQueryFailed:        http.StatusInternalServerError,
	ErrCodeCacheUnavailable:         http.StatusServiceUnavailable,
}

// HTTPStatus returns the HTTP status for an error code, defaulting to 500.
func HTTPStatus(code ErrorCode) int {
	if status, ok := httpStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Normalize ensures any error is represented as a DomainError.
func Normalize(err error) *DomainError {
	if de, ok := err.(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
	}
}
