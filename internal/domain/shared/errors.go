package shared

import (
	"context"
	"errors"
	"fmt"
)

// DomainError represents a domain-level error.
// Every business-rule rejection of the ledger is a DomainError; it never
// leaves persisted state mutated.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped sentinels compare equal
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// StorageError is returned when the ledger store cannot acquire or commit a
// transaction. Nothing of the failed unit of work is visible afterwards.
type StorageError struct {
	Op       string
	Timeout  bool
	Conflict bool
	Err      error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("storage %s timed out: %v", e.Op, e.Err)
	case e.Conflict:
		return fmt.Sprintf("storage %s conflict: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying driver error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the same operation as-is
func (e *StorageError) Retryable() bool {
	return e.Timeout || e.Conflict
}

// NewStorageError wraps err as a storage failure for op.
// Deadline expiry is flagged as a timeout.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{
		Op:      op,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

// NewConflictError reports a concurrent writer on the same row
func NewConflictError(op string, err error) *StorageError {
	return &StorageError{Op: op, Conflict: true, Err: err}
}

// IsValidationFailure reports whether err is a business-rule rejection
func IsValidationFailure(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// IsStorageFailure reports whether err came from the ledger store
func IsStorageFailure(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsTimeout reports whether err is a storage failure caused by the bounded wait expiring
func IsTimeout(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Timeout
}
