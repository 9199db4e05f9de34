package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeReservedID    ErrorType = "reserved_id"
	ErrorTypeDuplicateID   ErrorType = "duplicate_id"
	ErrorTypeImmutableCore ErrorType = "immutable_core"
	ErrorTypeCorruption    ErrorType = "corruption"
	ErrorTypeStorage       ErrorType = "storage"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrPresetNotFound   = NewDomainError(ErrorTypeNotFound, "preset not found", nil)
	ErrOverrideNotFound = NewDomainError(ErrorTypeNotFound, "corpus has no custom configuration", nil)

	// Validation Errors
	ErrInvalidInput    = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidCorpusID = NewDomainError(ErrorTypeValidation, "invalid corpus id", nil)
	ErrInvalidPresetID = NewDomainError(ErrorTypeValidation, "invalid preset id", nil)

	// Preset protection errors
	ErrReservedPresetID    = NewDomainError(ErrorTypeReservedID, "preset id is reserved for a core preset", nil)
	ErrDuplicatePresetID   = NewDomainError(ErrorTypeDuplicateID, "preset id already exists", nil)
	ErrImmutableCorePreset = NewDomainError(ErrorTypeImmutableCore, "core presets cannot be modified or deleted", nil)

	// Operational errors
	ErrConfigCorrupted = NewDomainError(ErrorTypeCorruption, "stored configuration document is unreadable", nil)
	ErrStorage         = NewDomainError(ErrorTypeStorage, "configuration storage unavailable", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsReservedIDError checks if an error is a reserved id error
func IsReservedIDError(err error) bool {
	return GetErrorType(err) == ErrorTypeReservedID
}

// IsDuplicateIDError checks if an error is a duplicate id error
func IsDuplicateIDError(err error) bool {
	return GetErrorType(err) == ErrorTypeDuplicateID
}

// IsImmutableCoreError checks if an error is an immutable core preset error
func IsImmutableCoreError(err error) bool {
	return GetErrorType(err) == ErrorTypeImmutableCore
}

// IsCorruptionError checks if an error is a corruption error
func IsCorruptionError(err error) bool {
	return GetErrorType(err) == ErrorTypeCorruption
}

// IsStorageError checks if an error is a storage error
func IsStorageError(err error) bool {
	return GetErrorType(err) == ErrorTypeStorage
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapValidation wraps an error as a validation error
func WrapValidation(message string, err error) error {
	return NewDomainError(ErrorTypeValidation, message, err)
}

// WrapStorage wraps an error as a storage error
func WrapStorage(message string, err error) error {
	return NewDomainError(ErrorTypeStorage, message, err)
}

// WrapCorruption wraps an error as a corruption error
func WrapCorruption(message string, err error) error {
	return NewDomainError(ErrorTypeCorruption, message, err)
}
