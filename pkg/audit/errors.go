package audit

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist in the primary store.
var ErrNotFound = errors.New("audit record not found")

// FormatError reports malformed JSON or tar content.
type FormatError struct {
	Source string // What was being decoded ("envelope", "records", "tar", ...)
	Cause  error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("format error [source=%s]: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *FormatError) Unwrap() error {
	return e.Cause
}

// NewFormatError creates a new FormatError.
func NewFormatError(source string, cause error) *FormatError {
	return &FormatError{Source: source, Cause: cause}
}

// CompressionError reports a corrupt or unreadable gzip stream.
type CompressionError struct {
	Operation string // "compress" or "decompress"
	Cause     error
}

// Error implements the error interface.
func (e *CompressionError) Error() string {
	return fmt.Sprintf("compression error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *CompressionError) Unwrap() error {
	return e.Cause
}

// NewCompressionError creates a new CompressionError.
func NewCompressionError(operation string, cause error) *CompressionError {
	return &CompressionError{Operation: operation, Cause: cause}
}

// IOError reports a filesystem failure on an archive path.
type IOError struct {
	Path      string
	Operation string // "read", "write", "mkdir", "remove", ...
	Cause     error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("io error [path=%s, operation=%s]: %v", e.Path, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *IOError) Unwrap() error {
	return e.Cause
}

// NewIOError creates a new IOError.
func NewIOError(path, operation string, cause error) *IOError {
	return &IOError{Path: path, Operation: operation, Cause: cause}
}

// ValidationError reports invalid input: blank event types, inverted or
// oversized date ranges, and retention-floor or data-loss guard violations.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError represents an error from the primary store backend.
type StorageError struct {
	Backend   string // "sqlite3", "sqlite", "memory"
	Operation string // "save", "find", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
