package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInvalidFormat        ErrorType = "INVALID_FORMAT"
	ErrTypeEmptyFile            ErrorType = "EMPTY_FILE"
	ErrTypeMalformedRow         ErrorType = "MALFORMED_ROW"
	ErrTypeJoinArityMismatch    ErrorType = "JOIN_ARITY_MISMATCH"
	ErrTypeDuplicateColumn      ErrorType = "DUPLICATE_COLUMN"
	ErrTypeDuplicateKey         ErrorType = "DUPLICATE_KEY"
	ErrTypeUnknownColumn        ErrorType = "UNKNOWN_COLUMN"
	ErrTypeInsufficientVariance ErrorType = "INSUFFICIENT_VARIANCE"
	ErrTypeWriteFailure         ErrorType = "WRITE_FAILURE"
	ErrTypeInvalidArgument      ErrorType = "INVALID_ARGUMENT"
	ErrTypeNotFound             ErrorType = "NOT_FOUND"
	ErrTypePermission           ErrorType = "PERMISSION"
	ErrTypeConfig               ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain contains an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// Helper functions for common error types

// NewInvalidFormatError reports a path whose extension does not map to a delimiter.
func NewInvalidFormatError(path string) *AppError {
	return NewAppError(ErrTypeInvalidFormat,
		fmt.Sprintf("file name should end with .csv or .tsv, %q is not valid", path), nil).
		WithContext("path", path)
}

// NewEmptyFileError reports a file without a header line.
func NewEmptyFileError(path string) *AppError {
	return NewAppError(ErrTypeEmptyFile, fmt.Sprintf("%s has no header line", path), nil).
		WithContext("path", path)
}

// NewMalformedRowError reports a data row whose field count differs from the header.
func NewMalformedRowError(path string, line, got, want int) *AppError {
	return NewAppError(ErrTypeMalformedRow,
		fmt.Sprintf("%s line %d has %d fields, header has %d", path, line, got, want), nil).
		WithContext("path", path).
		WithContext("line", line)
}

// NewParsingError wraps a low-level reader failure for a file.
func NewParsingError(path string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedRow, fmt.Sprintf("failed to parse %s", path), cause).
		WithContext("path", path)
}

// NewJoinArityMismatchError reports inputs with inconsistent row identifier policies.
func NewJoinArityMismatchError(indexed, plain []string) *AppError {
	return NewAppError(ErrTypeJoinArityMismatch,
		fmt.Sprintf("inputs mix row identifiers %v with positional inputs %v", indexed, plain), nil)
}

// NewDuplicateColumnError reports a column name that appears more than once.
func NewDuplicateColumnError(name, source string) *AppError {
	return NewAppError(ErrTypeDuplicateColumn,
		fmt.Sprintf("column %q from %s is already present", name, source), nil).
		WithContext("column", name)
}

// NewDuplicateKeyError reports a row identifier value repeated within one input.
func NewDuplicateKeyError(key, source string) *AppError {
	return NewAppError(ErrTypeDuplicateKey,
		fmt.Sprintf("row identifier %q repeats in %s", key, source), nil).
		WithContext("key", key)
}

// NewUnknownColumnError reports a requested column that is absent or has the wrong type.
func NewUnknownColumnError(name, reason string) *AppError {
	return NewAppError(ErrTypeUnknownColumn, fmt.Sprintf("column %q %s", name, reason), nil).
		WithContext("column", name)
}

// NewInsufficientVarianceError reports a column whose variance is zero.
func NewInsufficientVarianceError(name string) *AppError {
	return NewAppError(ErrTypeInsufficientVariance,
		fmt.Sprintf("column %q has zero variance, correlation is undefined", name), nil).
		WithContext("column", name)
}

// NewWriteFailureError reports an output destination that cannot be created or written.
func NewWriteFailureError(path string, cause error) *AppError {
	return NewAppError(ErrTypeWriteFailure, fmt.Sprintf("cannot write %s", path), cause).
		WithContext("path", path)
}

// NewInvalidArgumentError creates an invalid argument error
func NewInvalidArgumentError(message string) *AppError {
	return NewAppError(ErrTypeInvalidArgument, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewPermissionError creates a permission error
func NewPermissionError(message string, cause error) *AppError {
	return NewAppError(ErrTypePermission, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
