package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeCredential ErrorType = "credential"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeExternal   ErrorType = "external"
	ErrorTypeExhausted  ErrorType = "exhausted"
	ErrorTypeInternal   ErrorType = "internal"
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
	// Validation Errors
	ErrInvalidInput     = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyMessages    = NewDomainError(ErrorTypeValidation, "messages cannot be empty", nil)
	ErrUnknownBackend   = NewDomainError(ErrorTypeValidation, "unknown backend specified", nil)
	ErrInvalidTaskRoute = NewDomainError(ErrorTypeValidation, "invalid task route configuration", nil)

	// Credential Errors
	ErrCredentialNotFound   = NewDomainError(ErrorTypeCredential, "no credential found for backend", nil)
	ErrCredentialDecryption = NewDomainError(ErrorTypeCredential, "credential decryption failed", nil)
	ErrCredentialEmpty      = NewDomainError(ErrorTypeCredential, "decrypted credential is empty", nil)

	// External Backend Errors
	ErrBackendUnavailable = NewDomainError(ErrorTypeExternal, "backend unavailable", nil)
	ErrBackendTimeout     = NewDomainError(ErrorTypeTimeout, "backend request timed out", nil)
	ErrBackendRateLimit   = NewDomainError(ErrorTypeRateLimit, "backend rate limit exceeded", nil)
	ErrBackendError       = NewDomainError(ErrorTypeExternal, "backend returned an error", nil)

	// Exhaustion Errors
	ErrAllBackendsFailed = NewDomainError(ErrorTypeExhausted, "all candidate backends failed", nil)
	ErrRetriesExhausted  = NewDomainError(ErrorTypeExhausted, "retry attempts exhausted", nil)

	// Internal Errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsCredentialError checks if an error is a credential resolution error
func IsCredentialError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeCredential
	}
	return false
}

// IsExternalError checks if an error is an external backend error
func IsExternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeExternal
	}
	return false
}

// IsExhaustedError checks if an error indicates candidate or retry exhaustion
func IsExhaustedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeExhausted
	}
	return false
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeTimeout
	}
	return false
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeRateLimit
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external backend error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
