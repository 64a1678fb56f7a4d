// Package errors defines the failures the service reports to its callers.
package errors

import (
	"net/http"

	"authcore/internal/errors"
)

// AppError is an error with a stable HTTP status and business code.
type AppError interface {
	error
	HTTPCode() int
	ErrorCode() string
	Message() string
}

// BaseError is a fixed AppError value.
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
	}
}

func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage annotates the error for logs. The caller still receives only Message.
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

func (e *BaseError) Message() string {
	return e.message
}

//nolint:gochecknoglobals
var (
	// Authentication failures. Messages are uniform so callers cannot tell an unknown
	// credential from a revoked or expired one.
	ErrVerificationFailed = NewBaseError(http.StatusUnauthorized, "VERIFICATION_FAILED", "identity assertion could not be verified")
	ErrRefreshFailed      = NewBaseError(http.StatusUnauthorized, "REFRESH_FAILED", "refresh token is invalid or expired")
	ErrUnauthorized       = NewBaseError(http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")

	ErrRateLimited      = NewBaseError(http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
	ErrValidationFailed = NewBaseError(http.StatusBadRequest, "VALIDATION_FAILED", "input validation failed")
	ErrInternalError    = NewBaseError(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
)

// DatabaseExecuteError wraps a storage failure that is neither a missing row nor a
// known constraint violation.
type DatabaseExecuteError struct {
	err    error
	action string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, action string) AppError {
	return &DatabaseExecuteError{
		err:    err,
		action: action,
	}
}

func (e *DatabaseExecuteError) Error() string {
	return e.action + ": " + e.err.Error()
}

func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

func (e *DatabaseExecuteError) Message() string {
	return "database execution failed"
}

// Unwrap exposes the underlying driver error.
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

// ConfigurationError reports a missing or invalid configuration value. It is raised
// while the application starts and aborts startup; it never reaches a request.
type ConfigurationError struct {
	Field  string
	Reason string
}

// NewConfigurationError creates a configuration error for the given key.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Field + ": " + e.Reason
}
