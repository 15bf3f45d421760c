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
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Resolution errors
	ErrUnknownPackage     ErrorCode = "UNKNOWN_PACKAGE"
	ErrCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"

	// Deployment errors
	ErrStagingCollision  ErrorCode = "STAGING_COLLISION"
	ErrDriftConflict     ErrorCode = "DRIFT_CONFLICT"
	ErrUnmanagedConflict ErrorCode = "UNMANAGED_CONFLICT"
	ErrTemplateRender    ErrorCode = "TEMPLATE_RENDER"
	ErrHookFailed        ErrorCode = "HOOK_FAILED"

	// State errors
	ErrStateLoad    ErrorCode = "STATE_LOAD"
	ErrStateVersion ErrorCode = "STATE_VERSION"
	ErrStateLocked  ErrorCode = "STATE_LOCKED"
	ErrBlobMissing  ErrorCode = "BLOB_MISSING"

	// FileSystem errors
	ErrFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
)

// DotmError represents a structured error with code and details
type DotmError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DotmError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DotmError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *DotmError) Is(target error) bool {
	var targetErr *DotmError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DotmError with the given code and message
func New(code ErrorCode, message string) *DotmError {
	return &DotmError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DotmError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DotmError {
	return &DotmError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a DotmError
func Wrap(err error, code ErrorCode, message string) *DotmError {
	if err == nil {
		return nil
	}
	return &DotmError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DotmError {
	if err == nil {
		return nil
	}
	return &DotmError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DotmError) WithDetail(key string, value interface{}) *DotmError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var dotmErr *DotmError
	if errors.As(err, &dotmErr) {
		return dotmErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DotmError
func GetErrorCode(err error) ErrorCode {
	var dotmErr *DotmError
	if errors.As(err, &dotmErr) {
		return dotmErr.Code
	}
	return ErrUnknown
}
