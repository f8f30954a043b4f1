package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an application error
type ErrorType string

const (
	ErrTypeNotFound ErrorType = "NOT_FOUND"
	ErrTypeDecode   ErrorType = "DECODE"
	ErrTypeSchema   ErrorType = "SCHEMA"
	ErrTypeFormat   ErrorType = "FORMAT"
	ErrTypeStorage  ErrorType = "STORAGE"
	ErrTypeConfig   ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
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

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates an error for an absent object or key.
// Callers treat this category as "no prior state", not as a failure.
func NewNotFoundError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNotFound, message, cause)
}

// NewDecodeError creates an error for payloads that exist but cannot be
// parsed as the expected tabular encoding
func NewDecodeError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDecode, message, cause)
}

// NewSchemaError creates an error for a ledger whose column set does not
// match the expected meta file layout
func NewSchemaError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSchema, message, cause)
}

// NewFormatError creates an error for an unsupported output file format
func NewFormatError(message string, cause error) *AppError {
	return NewAppError(ErrTypeFormat, message, cause)
}

// NewStorageError creates an error for store I/O failures
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates an error for operator-level misconfiguration
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err or any error in its chain is an AppError of
// the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// GetType returns the error type of err, or an empty string when err is
// not an AppError
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
