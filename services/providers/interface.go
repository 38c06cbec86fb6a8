package providers

import (
	"context"
	"time"
)

// Backend represents one upstream inference provider capable of serving a
// chat/completion request. Implementations own the actual network call; the
// routing core treats them as opaque and idempotent.
type Backend interface {
	// Name returns the stable backend identifier (e.g. "gemini", "claude", "openai")
	Name() string

	// Invoke performs a chat completion request. The supplied credential may be
	// a per-user key or the system key; implementations must not log it.
	// Deadlines and cancellation arrive through ctx.
	Invoke(ctx context.Context, req *ChatRequest, credential string) (*ChatResponse, error)

	// IsLocal reports whether this backend runs on-host (no per-token cost)
	IsLocal() bool
}

// ChatRequest represents a unified chat completion request
type ChatRequest struct {
	// Model identifier, optional; backends fall back to their default model
	Model string `json:"model,omitempty"`

	// Messages in the conversation
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64 `json:"temperature,omitempty"`

	// Metadata for tracking and logging; never contains message content
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ChatResponse represents a unified chat completion response
type ChatResponse struct {
	// ID is the unique identifier for this completion
	ID string `json:"id"`

	// Model used for the completion
	Model string `json:"model"`

	// Content is the completion text
	Content string `json:"content"`

	// Usage statistics; zero-valued when the backend does not report usage
	Usage Usage `json:"usage"`

	// Backend that handled the request
	Backend string `json:"backend"`

	// Latency of the request
	Latency time.Duration `json:"latency"`

	// Created timestamp
	Created time.Time `json:"created"`
}

// Usage represents token usage statistics
type Usage struct {
	// PromptTokens used in the request
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens used in the response
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum of prompt and completion tokens
	TotalTokens int `json:"total_tokens"`
}

// BackendError represents an error from a backend
type BackendError struct {
	// Backend that generated the error
	Backend string

	// Code is the error code
	Code string

	// Message is the error message; never contains request or response content
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable indicates if the request can be retried
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError creates a new backend error
func NewBackendError(backend, code, message string, statusCode int, retryable bool, cause error) *BackendError {
	return &BackendError{
		Backend:    backend,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if backendErr, ok := err.(*BackendError); ok {
		return backendErr.Retryable
	}
	return false
}

// StatusCode extracts the HTTP status code from a backend error, 0 otherwise
func StatusCode(err error) int {
	if backendErr, ok := err.(*BackendError); ok {
		return backendErr.StatusCode
	}
	return 0
}
