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

	// Plan errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrPlanInvalid ErrorCode = "PLAN_INVALID"

	// Execution errors
	ErrStepExecute ErrorCode = "STEP_EXECUTE"
	ErrUndoExecute ErrorCode = "UNDO_EXECUTE"
)

// UnwindError represents a structured error with code and details
type UnwindError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *UnwindError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *UnwindError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *UnwindError) Is(target error) bool {
	var targetErr *UnwindError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new UnwindError with the given code and message
func New(code ErrorCode, message string) *UnwindError {
	return &UnwindError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new UnwindError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *UnwindError {
	return &UnwindError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an UnwindError
func Wrap(err error, code ErrorCode, message string) *UnwindError {
	if err == nil {
		return nil
	}
	return &UnwindError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *UnwindError {
	if err == nil {
		return nil
	}
	return &UnwindError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *UnwindError) WithDetail(key string, value interface{}) *UnwindError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var unwindErr *UnwindError
	if errors.As(err, &unwindErr) {
		return unwindErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an UnwindError
func GetErrorCode(err error) ErrorCode {
	var unwindErr *UnwindError
	if errors.As(err, &unwindErr) {
		return unwindErr.Code
	}
	return ErrUnknown
}
