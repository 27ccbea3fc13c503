package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Version and manifest errors
	ErrVersionParse  ErrorCode = "PARSE_ERROR"
	ErrManifestParse ErrorCode = "MANIFEST_PARSE"

	// Discovery errors
	ErrDiscovery  ErrorCode = "DISCOVERY_ERROR"
	ErrFileAccess ErrorCode = "FILE_ACCESS"

	// Backend errors
	ErrRepoConflict   ErrorCode = "REPO_CONFLICT"
	ErrRepoUpdate     ErrorCode = "REPO_UPDATE"
	ErrBackendTimeout ErrorCode = "BACKEND_TIMEOUT"
	ErrInstall        ErrorCode = "INSTALL_ERROR"
	ErrEnvInvalid     ErrorCode = "ENV_INVALID"
)

// NestupError represents a structured error with code and details
type NestupError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *NestupError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *NestupError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *NestupError) Is(target error) bool {
	var targetErr *NestupError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new NestupError with the given code and message
func New(code ErrorCode, message string) *NestupError {
	return &NestupError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new NestupError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *NestupError {
	return &NestupError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a NestupError
func Wrap(err error, code ErrorCode, message string) *NestupError {
	if err == nil {
		return nil
	}
	return &NestupError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *NestupError {
	if err == nil {
		return nil
	}
	return &NestupError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *NestupError) WithDetail(key string, value interface{}) *NestupError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var nerr *NestupError
	if errors.As(err, &nerr) {
		return nerr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a NestupError
func GetErrorCode(err error) ErrorCode {
	var nerr *NestupError
	if errors.As(err, &nerr) {
		return nerr.Code
	}
	return ErrUnknown
}
