// Package errors provides structured error types for the Quarry system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryStore      ErrorCategory = "STORE"
	ErrCategoryQuery      ErrorCategory = "QUERY"
	ErrCategoryDataset    ErrorCategory = "DATASET"
	ErrCategoryCatalog    ErrorCategory = "CATALOG"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Store codes
	CodeTableNotFound = "TABLE_NOT_FOUND"

	// Query codes
	CodeColumnNotFound = "COLUMN_NOT_FOUND"
	CodeTypeMismatch   = "TYPE_MISMATCH"
	CodeInvalidSpec    = "INVALID_SPEC"

	// Dataset codes
	CodeIOError         = "IO_ERROR"
	CodeDatasetNotFound = "DATASET_NOT_FOUND"
	CodeCorruptBlob     = "CORRUPT_BLOB"

	// Catalog codes
	CodeWriteConflict = "WRITE_CONFLICT"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Validation codes
	CodeInvalidSchema = "INVALID_SCHEMA"
	CodeInvalidCSV    = "INVALID_CSV"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// QuarryError is the structured error type used throughout the system.
type QuarryError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *QuarryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *QuarryError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *QuarryError) Is(target error) bool {
	var t *QuarryError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new QuarryError.
func New(category ErrorCategory, code, message string) *QuarryError {
	return &QuarryError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new QuarryError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *QuarryError {
	return &QuarryError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *QuarryError) WithDetails(details map[string]interface{}) *QuarryError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a QuarryError.
func GetCategory(err error) ErrorCategory {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a QuarryError.
func GetCode(err error) string {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Only transient
// storage transfer failures qualify; the pipeline is linear and every other
// failure aborts the run.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewTableNotFound(name string) *QuarryError {
	return New(ErrCategoryStore, CodeTableNotFound, fmt.Sprintf("table %q not found", name))
}

func NewColumnNotFound(column string) *QuarryError {
	return New(ErrCategoryQuery, CodeColumnNotFound, fmt.Sprintf("column %q not found in schema", column))
}

func NewTypeMismatch(column, message string) *QuarryError {
	return New(ErrCategoryQuery, CodeTypeMismatch, fmt.Sprintf("column %q: %s", column, message))
}

func NewIOError(message string, cause error) *QuarryError {
	return Wrap(ErrCategoryDataset, CodeIOError, message, cause)
}

func NewStorageError(code, message string, cause error) *QuarryError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewCatalogError(code, message string, cause error) *QuarryError {
	return Wrap(ErrCategoryCatalog, code, message, cause)
}

func NewValidationError(code, message string) *QuarryError {
	return New(ErrCategoryValidation, code, message)
}

func NewInternalError(message string, cause error) *QuarryError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
