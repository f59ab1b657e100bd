package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types for encoder operations
var (
	// ErrUsage is returned for invalid command-line input (bad job count, no files)
	ErrUsage = &EncodeError{Code: "USAGE", Message: "invalid usage"}

	// ErrOpenFailed is returned when an input file cannot be opened
	ErrOpenFailed = &EncodeError{Code: "OPEN_FAILED", Message: "unable to open file"}

	// ErrStatFailed is returned when the size of an input file cannot be determined
	ErrStatFailed = &EncodeError{Code: "STAT_FAILED", Message: "unable to get file size"}

	// ErrMapFailed is returned when an input file cannot be mapped into memory
	ErrMapFailed = &EncodeError{Code: "MAP_FAILED", Message: "unable to map file"}

	// ErrWriteFailed is returned when the encoded stream cannot be written to the sink
	ErrWriteFailed = &EncodeError{Code: "WRITE_FAILED", Message: "unable to write output"}

	// ErrQueueClosed is returned by the work queue once it is closed and drained
	ErrQueueClosed = &EncodeError{Code: "QUEUE_CLOSED", Message: "work queue closed"}

	// ErrDuplicateSequence is returned when a reorder slot is written twice
	ErrDuplicateSequence = &EncodeError{Code: "DUPLICATE_SEQUENCE", Message: "sequence position already filled"}

	// ErrInvalidSequence is returned for a sequence position outside the reorder buffer
	ErrInvalidSequence = &EncodeError{Code: "INVALID_SEQUENCE", Message: "sequence position out of range"}
)

// EncodeError represents a structured error in encoder operations
type EncodeError struct {
	Code    string                 // Error code for programmatic handling
	Message string                 // Human-readable error message
	Cause   error                  // Underlying error, if any
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *EncodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code, so sentinel values
// match their derived copies with errors.Is.
func (e *EncodeError) Is(target error) bool {
	t, ok := target.(*EncodeError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause adds a cause to the error
func (e *EncodeError) WithCause(cause error) *EncodeError {
	return &EncodeError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *EncodeError) WithDetail(key string, value interface{}) *EncodeError {
	details := make(map[string]interface{})
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &EncodeError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// WithMessage overrides the error message
func (e *EncodeError) WithMessage(message string) *EncodeError {
	return &EncodeError{
		Code:    e.Code,
		Message: message,
		Cause:   e.Cause,
		Details: e.Details,
	}
}

// NewUsageError creates a usage error with the given message
func NewUsageError(format string, args ...interface{}) error {
	return ErrUsage.WithMessage(fmt.Sprintf(format, args...))
}

// NewOpenError creates a file open error
func NewOpenError(path string, cause error) error {
	return ErrOpenFailed.WithDetail("path", path).WithCause(cause)
}

// NewStatError creates a file stat error
func NewStatError(path string, cause error) error {
	return ErrStatFailed.WithDetail("path", path).WithCause(cause)
}

// NewMapError creates a file mapping error
func NewMapError(path string, size int64, cause error) error {
	return ErrMapFailed.
		WithDetail("path", path).
		WithDetail("size", size).
		WithCause(cause)
}

// NewWriteError creates an output write error
func NewWriteError(cause error) error {
	return ErrWriteFailed.WithCause(cause)
}

// IsEncodeError checks if an error is, or wraps, an EncodeError
func IsEncodeError(err error) bool {
	var encodeErr *EncodeError
	return stderrors.As(err, &encodeErr)
}

// GetErrorCode extracts the error code from an EncodeError anywhere in the chain
func GetErrorCode(err error) string {
	var encodeErr *EncodeError
	if stderrors.As(err, &encodeErr) {
		return encodeErr.Code
	}
	return ""
}
