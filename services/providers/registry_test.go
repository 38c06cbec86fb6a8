package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name string
}

func (b *stubBackend) Name() string  { return b.name }
func (b *stubBackend) IsLocal() bool { return false }

func (b *stubBackend) Invoke(_ context.Context, _ *ChatRequest, _ string) (*ChatResponse, error) {
	return &ChatResponse{Backend: b.name}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&stubBackend{name: "gemini"}))

	backend, err := registry.Get("gemini")
	require.NoError(t, err)
	assert.Equal(t, "gemini", backend.Name())
	assert.True(t, registry.Has("gemini"))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&stubBackend{name: "claude"}))
	err := registry.Register(&stubBackend{name: "claude"})
	assert.ErrorIs(t, err, ErrBackendAlreadyRegistered)
}

func TestRegistryRejectsInvalidBackends(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&stubBackend{name: ""}))
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry()

	backend, err := registry.Get("missing")
	assert.Nil(t, backend)
	assert.ErrorIs(t, err, ErrBackendNotFound)
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&stubBackend{name: "openai"}))
	require.NoError(t, registry.Unregister("openai"))
	assert.False(t, registry.Has("openai"))

	assert.ErrorIs(t, registry.Unregister("openai"), ErrBackendNotFound)
}

func TestRegistryList(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&stubBackend{name: "gemini"}))
	require.NoError(t, registry.Register(&stubBackend{name: "claude"}))

	names := registry.List()
	assert.ElementsMatch(t, []string{"gemini", "claude"}, names)
}

func TestBackendErrorHelpers(t *testing.T) {
	err := NewBackendError("gemini", "rate_limited", "too many requests", 429, true, nil)

	assert.True(t, IsRetryable(err))
	assert.Equal(t, 429, StatusCode(err))
	assert.Contains(t, err.Error(), "too many requests")

	assert.False(t, IsRetryable(assert.AnError))
	assert.Zero(t, StatusCode(assert.AnError))
}
