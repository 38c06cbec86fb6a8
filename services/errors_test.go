package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeExternal, "backend failed", baseErr)

	assert.Equal(t, ErrorTypeExternal, domainErr.Type)
	assert.Equal(t, "backend failed", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeExternal,
				Message: "backend unavailable",
				Err:     errors.New("connection reset"),
			},
			wantMsg: "external: backend unavailable (connection reset)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
				Err:     nil,
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	unwrapped := errors.Unwrap(domainErr)
	assert.Equal(t, baseErr, unwrapped)
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error type",
			err:    NewDomainError(ErrorTypeValidation, "empty", nil),
			target: ErrEmptyMessages,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewDomainError(ErrorTypeExternal, "backend", nil),
			target: ErrEmptyMessages,
			want:   false,
		},
		{
			name:   "not a domain error",
			err:    NewDomainError(ErrorTypeValidation, "empty", nil),
			target: errors.New("regular error"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("backend", "gemini").WithDetail("task", "general")

	assert.Equal(t, "gemini", err.Details["backend"])
	assert.Equal(t, "general", err.Details["task"])
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation error", ErrEmptyMessages, true},
		{"wrapped validation", fmt.Errorf("wrapped: %w", ErrUnknownBackend), true},
		{"external error", ErrBackendUnavailable, false},
		{"regular error", errors.New("regular"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidationError(tt.err))
		})
	}
}

func TestIsCredentialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", ErrCredentialNotFound, true},
		{"decryption", ErrCredentialDecryption, true},
		{"empty key", ErrCredentialEmpty, true},
		{"validation error", ErrInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCredentialError(tt.err))
		})
	}
}

func TestIsExternalError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"backend unavailable", ErrBackendUnavailable, true},
		{"backend error", ErrBackendError, true},
		{"timeout error", ErrBackendTimeout, false},
		{"internal error", ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExternalError(tt.err))
		})
	}
}

func TestIsExhaustedError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"all backends failed", ErrAllBackendsFailed, true},
		{"retries exhausted", ErrRetriesExhausted, true},
		{"external error", ErrBackendUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExhaustedError(tt.err))
		})
	}
}

func TestIsTimeoutError(t *testing.T) {
	assert.True(t, IsTimeoutError(ErrBackendTimeout))
	assert.False(t, IsTimeoutError(ErrBackendRateLimit))
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(ErrBackendRateLimit))
	assert.False(t, IsRateLimitError(ErrBackendTimeout))
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"validation", ErrEmptyMessages, ErrorTypeValidation},
		{"credential", ErrCredentialNotFound, ErrorTypeCredential},
		{"rate limit", ErrBackendRateLimit, ErrorTypeRateLimit},
		{"exhausted", ErrAllBackendsFailed, ErrorTypeExhausted},
		{"regular error", errors.New("regular"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestWrapError(t *testing.T) {
	baseErr := errors.New("base error")
	wrapped := WrapError(ErrorTypeExternal, "wrapped message", baseErr)

	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeExternal, domainErr.Type)
	assert.Equal(t, "wrapped message", domainErr.Message)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("store lookup failed")
	wrapped := WrapInternal("failed to read health record", baseErr)

	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeInternal, domainErr.Type)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestWrapExternal(t *testing.T) {
	baseErr := errors.New("gemini api error")
	wrapped := WrapExternal("backend request failed", baseErr)

	assert.True(t, IsExternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestAllErrorVariablesAreDefined(t *testing.T) {
	errorVars := []error{
		// Validation
		ErrInvalidInput,
		ErrEmptyMessages,
		ErrUnknownBackend,
		ErrInvalidTaskRoute,

		// Credential
		ErrCredentialNotFound,
		ErrCredentialDecryption,
		ErrCredentialEmpty,

		// External
		ErrBackendUnavailable,
		ErrBackendTimeout,
		ErrBackendRateLimit,
		ErrBackendError,

		// Exhaustion
		ErrAllBackendsFailed,
		ErrRetriesExhausted,

		// Internal
		ErrInternal,
	}

	for _, err := range errorVars {
		assert.NotNil(t, err, "error variable should not be nil")
		assert.NotEmpty(t, err.Error(), "error should have a message")
	}
}
