package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidFileType         = NewDomainError(ErrCodeValidation, "invalid file type")
	ErrInvalidFileStatus       = NewDomainError(ErrCodeValidation, "invalid file status")
	ErrEmptyChunkContent       = NewDomainError(ErrCodeValidation, "chunk content cannot be empty")
	ErrSplitOffsetOutOfRange   = NewDomainError(ErrCodeValidation, "split offset must fall inside the chunk content")
	ErrMergeSetTooSmall        = NewDomainError(ErrCodeValidation, "merge requires at least two chunks")
	ErrMissingRequiredField    = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidOperation, "file status cannot regress to pending")
)

// Not found errors
var (
	ErrFileNotFound    = NewDomainError(ErrCodeNotFound, "file not found")
	ErrChunkNotFound   = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "chat session not found")
)

// Authorization errors
var (
	ErrInvalidToken = NewDomainError(ErrCodeUnauthorized, "invalid access token")
	ErrNotOwner     = NewDomainError(ErrCodeForbidden, "resource belongs to another user")
)

// Operation errors
var (
	ErrChunkFileMismatch = NewDomainError(ErrCodeInvalidOperation, "chunks belong to different files")
	ErrStorageOperation  = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
